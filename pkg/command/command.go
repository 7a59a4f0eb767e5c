// Package command implements the dot-commands shared by the interactive CLI
// and the OneBot group chat.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"dprcalc/pkg/dpr"
	"dprcalc/pkg/game"
	"dprcalc/pkg/odds"
	"dprcalc/pkg/snapshot"
)

const Help = `Commands:
  .dpr [bonus] [ac] [damage] [attacks] [adv|dis]  - 计算期望伤害 (e.g. .dpr 6 18 1d8+2 2)
  .dpr [name] [ac] [adv|dis]                      - 使用保存的攻击者
  .explain ...                                    - 同 .dpr，并由 AI 解读结果
  .atk [name] [bonus] [damage] [attacks]          - 保存攻击者
  .show [name]                                    - 显示保存的攻击者
  .rm [name]                                      - 删除攻击者
  .snapshot / .delsnapshot                        - 保存 / 删除快照
  .help                                           - 显示帮助`

// Explainer puts a report into words.
type Explainer interface {
	Explain(ctx context.Context, r dpr.Report) (string, error)
}

// Handler answers dot-commands. Advisor may be nil.
type Handler struct {
	Rosters        *game.Manager
	Advisor        Explainer
	SnapshotDir    string
	DefaultAttacks int
}

// IsCommand reports whether the input is addressed to the handler.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), ".")
}

// Handle runs one command for a group and returns the reply text.
func (h *Handler) Handle(ctx context.Context, groupID int64, input string) string {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "Error: empty command"
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	roster := h.Rosters.GetRoster(groupID)

	switch cmd {
	case ".dpr":
		p, err := h.parseProfile(roster, args)
		if err != nil {
			return "Error: " + err.Error()
		}
		r := dpr.Evaluate(p)
		logrus.WithFields(logrus.Fields{
			"group":  groupID,
			"bonus":  p.AttackBonus,
			"ac":     p.TargetDefense,
			"damage": p.Damage,
		}).Debugf("Evaluated DPR %.2f", r.Selected)
		return formatReport(r)

	case ".explain":
		if h.Advisor == nil {
			return "Error: AI advisor is not configured (set OPENAI_API_KEY)"
		}
		p, err := h.parseProfile(roster, args)
		if err != nil {
			return "Error: " + err.Error()
		}
		r := dpr.Evaluate(p)
		text, err := h.Advisor.Explain(ctx, r)
		if err != nil {
			logrus.Errorf("Explain failed: %v", err)
			return formatReport(r) + "\n(AI unavailable: " + err.Error() + ")"
		}
		return formatReport(r) + "\n" + text

	case ".atk":
		a, err := h.parseAttacker(args)
		if err != nil {
			return "Error: " + err.Error()
		}
		roster.Add(a)
		return "Saved " + a.String()

	case ".show":
		if len(args) == 0 {
			return roster.Summary()
		}
		a, err := roster.Get(args[0])
		if err != nil {
			return "Error: " + err.Error()
		}
		return a.String()

	case ".rm":
		if len(args) < 1 {
			return "Error: Usage .rm [name]"
		}
		if !roster.Remove(args[0]) {
			return fmt.Sprintf("Error: %v: %s", game.ErrUnknownAttacker, args[0])
		}
		return "Removed " + args[0]

	case ".snapshot":
		filename, err := snapshot.SaveSnapshot(h.SnapshotDir, h.Rosters)
		if err != nil {
			return fmt.Sprintf("Snapshot failed: %v", err)
		}
		return "Snapshot saved: " + filename

	case ".delsnapshot":
		filename, err := snapshot.DeleteLatestSnapshot(h.SnapshotDir)
		if err != nil {
			return fmt.Sprintf("Delete failed: %v", err)
		}
		return "Deleted latest snapshot: " + filename

	case ".help":
		return Help
	}

	return fmt.Sprintf("Unknown command: %s", cmd)
}

func formatReport(r dpr.Report) string {
	p := r.Profile
	header := fmt.Sprintf("%+d vs AC %d, %s x%d (%s)",
		p.AttackBonus, p.TargetDefense, p.Breakdown().Expression, p.Attacks, p.Mode)
	return header + "\n" + r.String()
}

// parseProfile accepts either "bonus ac damage [attacks] [mode]" or
// "name ac [mode]" for a saved attacker.
func (h *Handler) parseProfile(roster *game.Roster, args []string) (dpr.Profile, error) {
	if len(args) < 2 {
		return dpr.Profile{}, errors.New("Usage .dpr [bonus] [ac] [damage] [attacks] [adv|dis] or .dpr [name] [ac] [adv|dis]")
	}

	bonus, err := strconv.Atoi(args[0])
	if err != nil {
		return h.parseNamedProfile(roster, args)
	}

	if len(args) < 3 {
		return dpr.Profile{}, errors.New("Usage .dpr [bonus] [ac] [damage] [attacks] [adv|dis]")
	}
	ac, err := strconv.Atoi(args[1])
	if err != nil {
		return dpr.Profile{}, fmt.Errorf("AC must be a number, got %q", args[1])
	}

	p := dpr.Profile{
		AttackBonus:   bonus,
		TargetDefense: ac,
		Damage:        args[2],
		Attacks:       h.DefaultAttacks,
	}
	var modeTokens []string
	attacksSet := false
	for _, tok := range args[3:] {
		n, err := strconv.Atoi(tok)
		if err != nil {
			modeTokens = append(modeTokens, tok)
			continue
		}
		if attacksSet {
			return dpr.Profile{}, fmt.Errorf("attacks given more than once (%q)", tok)
		}
		if n < 0 {
			return dpr.Profile{}, fmt.Errorf("attacks must not be negative, got %d", n)
		}
		p.Attacks = n
		attacksSet = true
	}
	if p.Mode, err = resolveMode(modeTokens); err != nil {
		return dpr.Profile{}, err
	}
	return p, nil
}

// resolveMode folds the trailing mode words into one Mode. At most one word is
// allowed; adv together with dis is ErrConflictingModes.
func resolveMode(tokens []string) (odds.Mode, error) {
	seen := make(map[odds.Mode]bool)
	for _, tok := range tokens {
		mode, err := odds.ParseMode(tok)
		if err != nil {
			return odds.Normal, err
		}
		seen[mode] = true
	}
	if seen[odds.Advantage] && seen[odds.Disadvantage] {
		return odds.Normal, odds.ErrConflictingModes
	}
	if len(tokens) > 1 {
		return odds.Normal, fmt.Errorf("roll mode given more than once: %s", strings.Join(tokens, " "))
	}
	if len(tokens) == 0 {
		return odds.Normal, nil
	}
	return odds.ParseMode(tokens[0])
}

func (h *Handler) parseNamedProfile(roster *game.Roster, args []string) (dpr.Profile, error) {
	a, err := roster.Get(args[0])
	if err != nil {
		return dpr.Profile{}, err
	}
	ac, err := strconv.Atoi(args[1])
	if err != nil {
		return dpr.Profile{}, fmt.Errorf("AC must be a number, got %q", args[1])
	}

	mode, err := resolveMode(args[2:])
	if err != nil {
		return dpr.Profile{}, err
	}
	return a.Profile(ac, mode), nil
}

func (h *Handler) parseAttacker(args []string) (game.Attacker, error) {
	if len(args) < 3 {
		return game.Attacker{}, errors.New("Usage .atk [name] [bonus] [damage] [attacks]")
	}
	if _, err := strconv.Atoi(args[0]); err == nil {
		return game.Attacker{}, errors.New("attacker name must not be a number")
	}
	bonus, err := strconv.Atoi(args[1])
	if err != nil {
		return game.Attacker{}, fmt.Errorf("bonus must be a number, got %q", args[1])
	}

	a := game.Attacker{
		Name:        args[0],
		AttackBonus: bonus,
		Damage:      args[2],
		Attacks:     h.DefaultAttacks,
	}
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil || n < 0 {
			return game.Attacker{}, fmt.Errorf("attacks must be a non-negative number, got %q", args[3])
		}
		a.Attacks = n
	}
	return a, nil
}
