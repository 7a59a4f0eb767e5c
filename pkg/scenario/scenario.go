// Package scenario evaluates a batch of attackers against a list of target
// armor classes described in a YAML file.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"dprcalc/pkg/dpr"
	"dprcalc/pkg/game"
	"dprcalc/pkg/odds"
)

var (
	ErrNoAttackers = errors.New("scenario has no attackers")
	ErrNoTargets   = errors.New("scenario has no target armor classes")
)

// Scenario is one YAML document:
//
//	mode: advantage
//	targets: [13, 15, 18]
//	attackers:
//	  - name: Fighter
//	    attack_bonus: 6
//	    damage: 1d8+2
//	    num_attacks: 2
type Scenario struct {
	Mode      odds.Mode
	Targets   []int
	Attackers []game.Attacker
}

type attackerDoc struct {
	Name        string `yaml:"name"`
	AttackBonus int    `yaml:"attack_bonus"`
	Damage      string `yaml:"damage"`
	Attacks     *int   `yaml:"num_attacks"`
}

type scenarioDoc struct {
	Mode      odds.Mode     `yaml:"mode"`
	Targets   []int         `yaml:"targets"`
	Attackers []attackerDoc `yaml:"attackers"`
}

// Row is the result for one attacker against one armor class.
type Row struct {
	Attacker string
	TargetAC int
	Report   dpr.Report
}

// Load reads a scenario file. Attackers without num_attacks get defaultAttacks.
func Load(path string, defaultAttacks int) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data, defaultAttacks)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte, defaultAttacks int) (*Scenario, error) {
	var doc scenarioDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if len(doc.Attackers) == 0 {
		return nil, ErrNoAttackers
	}
	if len(doc.Targets) == 0 {
		return nil, ErrNoTargets
	}

	s := &Scenario{Mode: doc.Mode, Targets: doc.Targets}
	for i, a := range doc.Attackers {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("attacker %d", i+1)
		}
		attacks := defaultAttacks
		if a.Attacks != nil {
			attacks = *a.Attacks
		}
		if attacks < 0 {
			return nil, fmt.Errorf("attacker %q: num_attacks must not be negative", name)
		}
		s.Attackers = append(s.Attackers, game.Attacker{
			Name:        name,
			AttackBonus: a.AttackBonus,
			Damage:      a.Damage,
			Attacks:     attacks,
		})
	}
	return s, nil
}

// Evaluate returns one row per attacker and target, attackers outermost.
func (s *Scenario) Evaluate() []Row {
	rows := make([]Row, 0, len(s.Attackers)*len(s.Targets))
	for _, a := range s.Attackers {
		for _, ac := range s.Targets {
			rows = append(rows, Row{
				Attacker: a.Name,
				TargetAC: ac,
				Report:   dpr.Evaluate(a.Profile(ac, s.Mode)),
			})
		}
	}
	return rows
}

// WriteTable prints rows as an aligned table.
func WriteTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTACKER\tAC\tDPR-a\tDPR\tDPR-d")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n",
			r.Attacker, r.TargetAC, r.Report.Advantage, r.Report.Selected, r.Report.Disadvantage)
	}
	return tw.Flush()
}
