// Package dpr combines damage averages and roll probabilities into expected
// damage per round.
package dpr

import (
	"fmt"
	"math"

	"dprcalc/pkg/dice"
	"dprcalc/pkg/odds"
)

// Profile 一轮攻击的完整描述
type Profile struct {
	AttackBonus   int       `json:"attack_bonus" yaml:"attack_bonus"`
	TargetDefense int       `json:"target_ac" yaml:"target_ac"`
	Damage        string    `json:"damage" yaml:"damage"`
	Attacks       int       `json:"num_attacks" yaml:"num_attacks"`
	Mode          odds.Mode `json:"mode" yaml:"mode"`
}

// Breakdown keeps every intermediate quantity at full precision.
type Breakdown struct {
	Needed     int
	RawHit     float64
	Hit        float64 // RawHit with the crit chance taken out
	Crit       float64
	Average    float64
	CritAvg    float64
	PerAttack  float64
	Expected   float64 // unrounded
	Expression dice.Expression
}

// Report holds the three figures printed for a profile.
type Report struct {
	Profile      Profile
	Advantage    float64
	Selected     float64
	Disadvantage float64
}

// Breakdown evaluates the profile without rounding.
func (p Profile) Breakdown() Breakdown {
	expr := dice.Parse(p.Damage)
	b := Breakdown{
		Needed:     odds.Needed(p.AttackBonus, p.TargetDefense),
		RawHit:     odds.HitChance(p.AttackBonus, p.TargetDefense, p.Mode),
		Crit:       odds.CritChance(p.Mode),
		Average:    expr.Average(),
		CritAvg:    expr.AverageCrit(),
		Expression: expr,
	}
	b.Hit = b.RawHit - b.Crit
	b.PerAttack = b.Hit*b.Average + b.Crit*b.CritAvg
	b.Expected = float64(p.Attacks) * b.PerAttack
	return b
}

// Expected returns the profile's expected damage per round, rounded to 2 places.
func (p Profile) Expected() float64 {
	return Round(p.Breakdown().Expected)
}

// WithMode returns a copy of the profile using mode.
func (p Profile) WithMode(mode odds.Mode) Profile {
	p.Mode = mode
	return p
}

// ExpectedDamagePerRound 计算期望每轮伤害 (DPR)，结果保留两位小数
func ExpectedDamagePerRound(attackBonus, targetDefense int, damage string, attacks int, mode odds.Mode) float64 {
	return Profile{
		AttackBonus:   attackBonus,
		TargetDefense: targetDefense,
		Damage:        damage,
		Attacks:       attacks,
		Mode:          mode,
	}.Expected()
}

// Evaluate computes DPR under advantage, under the profile's own mode and
// under disadvantage.
func Evaluate(p Profile) Report {
	return Report{
		Profile:      p,
		Advantage:    p.WithMode(odds.Advantage).Expected(),
		Selected:     p.Expected(),
		Disadvantage: p.WithMode(odds.Disadvantage).Expected(),
	}
}

// Round rounds half away from zero to two decimal places.
// Negative zero collapses to zero so it never prints as -0.00.
func Round(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// String renders the report the way the CLI prints it.
func (r Report) String() string {
	return fmt.Sprintf("Expected DPR-a: %.2f\nExpected DPR: %.2f\nExpected DPR-d: %.2f",
		r.Advantage, r.Selected, r.Disadvantage)
}
