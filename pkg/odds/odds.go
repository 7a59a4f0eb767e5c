// Package odds computes d20 attack roll probabilities. Every number is an
// exact count over the outcome space; nothing is sampled.
package odds

import (
	"errors"
	"fmt"
	"strings"
)

// Mode 攻击检定的投掷方式
type Mode int

const (
	Normal Mode = iota
	Advantage
	Disadvantage
)

// ErrConflictingModes is returned when advantage and disadvantage are both requested.
var ErrConflictingModes = errors.New("advantage and disadvantage are mutually exclusive")

// Modes lists every mode in presentation order.
var Modes = []Mode{Advantage, Normal, Disadvantage}

func (m Mode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts the long names and the short forms adv/dis/n.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n", "normal":
		return Normal, nil
	case "a", "adv", "advantage":
		return Advantage, nil
	case "d", "dis", "disadv", "disadvantage":
		return Disadvantage, nil
	}
	return Normal, fmt.Errorf("unknown roll mode %q", s)
}

// SelectMode turns a pair of advantage/disadvantage switches into a Mode.
func SelectMode(advantage, disadvantage bool) (Mode, error) {
	switch {
	case advantage && disadvantage:
		return Normal, ErrConflictingModes
	case advantage:
		return Advantage, nil
	case disadvantage:
		return Disadvantage, nil
	}
	return Normal, nil
}

// Needed is the natural roll required to hit, clamped to [2, 20].
// Rolls of 1 and 20 never reach the plain comparison.
func Needed(attackBonus, targetDefense int) int {
	return max(2, min(20, targetDefense-attackBonus))
}

// HitChance 计算命中概率
//
// Normal counts only natural rolls 2..19 against 20 faces, so the natural 20 is
// not part of the result. Advantage and disadvantage enumerate all 400 ordered
// pairs of two d20 and keep the higher or lower die; those counts do include the
// pairs that crit.
func HitChance(attackBonus, targetDefense int, mode Mode) float64 {
	needed := Needed(attackBonus, targetDefense)

	switch mode {
	case Advantage:
		return pairChance(needed, true)
	case Disadvantage:
		return pairChance(needed, false)
	default:
		hits := 0
		for roll := 2; roll <= 19; roll++ {
			if roll >= needed {
				hits++
			}
		}
		return float64(hits) / 20
	}
}

// pairChance keeps the higher die when keepHighest is set, the lower otherwise.
func pairChance(needed int, keepHighest bool) float64 {
	hits := 0
	for d1 := 1; d1 <= 20; d1++ {
		for d2 := 1; d2 <= 20; d2++ {
			kept := min(d1, d2)
			if keepHighest {
				kept = max(d1, d2)
			}
			if kept >= needed && kept != 1 {
				hits++
			}
		}
	}
	return float64(hits) / 400
}

// CritChance 计算暴击概率 (只有天然 20 暴击)
func CritChance(mode Mode) float64 {
	switch mode {
	case Advantage:
		// at least one of two dice shows 20
		return 1 - (19.0/20.0)*(19.0/20.0)
	case Disadvantage:
		return 1.0 / 400
	default:
		return 1.0 / 20
	}
}
