package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"dprcalc/pkg/ai"
	"dprcalc/pkg/bot"
	"dprcalc/pkg/command"
	"dprcalc/pkg/config"
	"dprcalc/pkg/dpr"
	"dprcalc/pkg/game"
	"dprcalc/pkg/logging"
	"dprcalc/pkg/odds"
	"dprcalc/pkg/scenario"
	"dprcalc/pkg/snapshot"
)

// LOCAL_GROUP_ID 本地 CLI 使用的模拟群号
const LOCAL_GROUP_ID = 1001

type options struct {
	attackBonus  int
	targetAC     int
	damage       string
	attacks      int
	advantage    bool
	disadvantage bool
	verbose      bool
	explain      bool
	cli          bool
	scenario     string
	set          map[string]bool
}

// oneShot reports whether any of the single-evaluation flags were given.
func (o *options) oneShot() bool {
	return o.set["attack_bonus"] || o.set["target_ac"] || o.set["damage"]
}

func parseFlags(args []string, defaultAttacks int, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("dprcalc", flag.ContinueOnError)
	fs.SetOutput(output)

	o := &options{set: make(map[string]bool)}
	fs.IntVar(&o.attackBonus, "attack_bonus", 0, "Attack modifier (e.g. 6)")
	fs.IntVar(&o.targetAC, "target_ac", 0, "Target Armor Class (e.g. 18)")
	fs.StringVar(&o.damage, "damage", "", "Damage expression (e.g. 1d8+2)")
	fs.IntVar(&o.attacks, "num_attacks", defaultAttacks, "Number of attacks per round")
	fs.BoolVar(&o.advantage, "advantage", false, "Rolls made with advantage")
	fs.BoolVar(&o.disadvantage, "disadvantage", false, "Rolls made with disadvantage")
	fs.BoolVar(&o.verbose, "verbose", false, "Print hit/crit chances and average damage")
	fs.BoolVar(&o.explain, "explain", false, "Ask the AI advisor to explain the result")
	fs.BoolVar(&o.cli, "cli", false, "Force interactive CLI mode")
	fs.StringVar(&o.scenario, "scenario", "", "YAML file of attackers and target ACs to tabulate")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.oneShot() {
		for _, name := range []string{"attack_bonus", "target_ac", "damage"} {
			if !o.set[name] {
				return nil, fmt.Errorf("missing required flag -%s", name)
			}
		}
	}
	if o.attacks < 0 {
		return nil, fmt.Errorf("-num_attacks must not be negative, got %d", o.attacks)
	}
	return o, nil
}

func main() {
	// 1. Load .env + environment
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	closer := logging.Setup(cfg.Log)
	defer closer.Close()

	opts, err := parseFlags(os.Args[1:], cfg.DefaultAttacks, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// 2. Optional AI advisor
	var advisor *ai.Client
	if cfg.AI.APIKey != "" {
		advisor, err = ai.NewClient(cfg.AI)
		if err != nil {
			logrus.Warnf("AI advisor disabled: %v", err)
		}
	} else {
		logrus.Debug("OPENAI_API_KEY not set, AI advisor disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.scenario != "":
		err = runScenario(os.Stdout, opts.scenario, cfg.DefaultAttacks)
	case opts.oneShot():
		err = runOnce(ctx, os.Stdout, opts, advisor)
	default:
		err = runInteractive(ctx, cfg, opts, advisor)
	}
	if err != nil {
		logrus.Error(err)
		closer.Close()
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, w io.Writer, opts *options, advisor *ai.Client) error {
	mode, err := odds.SelectMode(opts.advantage, opts.disadvantage)
	if err != nil {
		return err
	}

	p := dpr.Profile{
		AttackBonus:   opts.attackBonus,
		TargetDefense: opts.targetAC,
		Damage:        opts.damage,
		Attacks:       opts.attacks,
		Mode:          mode,
	}
	b := p.Breakdown()
	if b.Expression.IsEmpty() {
		logrus.Warnf("Damage expression %q has no dice or modifiers, treating it as 0", opts.damage)
	}

	report := dpr.Evaluate(p)
	fmt.Fprintln(w, report.String())

	if opts.verbose {
		writeBreakdown(w, b)
	}

	if opts.explain {
		if advisor == nil {
			return errors.New("-explain needs OPENAI_API_KEY")
		}
		text, err := advisor.Explain(ctx, report)
		if err != nil {
			return fmt.Errorf("explain: %w", err)
		}
		fmt.Fprintln(w, text)
	}
	return nil
}

func writeBreakdown(w io.Writer, b dpr.Breakdown) {
	fmt.Fprintf(w, "Damage: %s (avg %.2f, crit avg %.2f)\n", b.Expression, b.Average, b.CritAvg)
	fmt.Fprintf(w, "Needed roll: %d\n", b.Needed)
	fmt.Fprintf(w, "Hit chance: %.4f (raw %.4f)\n", b.Hit, b.RawHit)
	fmt.Fprintf(w, "Crit chance: %.4f\n", b.Crit)
	fmt.Fprintf(w, "Per attack: %.4f\n", b.PerAttack)
}

func runScenario(w io.Writer, path string, defaultAttacks int) error {
	s, err := scenario.Load(path, defaultAttacks)
	if err != nil {
		return err
	}
	logrus.Infof("Evaluating %d attackers against %d target ACs (%s)", len(s.Attackers), len(s.Targets), s.Mode)
	return scenario.WriteTable(w, s.Evaluate())
}

func runInteractive(ctx context.Context, cfg *config.Config, opts *options, advisor *ai.Client) error {
	rosters := game.NewManager()

	// 恢复最近一次快照 (如果存在)
	snap, filename, err := snapshot.LoadLatestSnapshot(cfg.SnapshotDir)
	if err != nil {
		logrus.Errorf("Failed to load snapshot: %v", err)
	} else if snap != nil {
		logrus.Infof("Restoring attackers from %s (Time: %s)", filename, snap.Timestamp)
		rosters.ImportData(snap.Rosters)
	}

	h := &command.Handler{
		Rosters:        rosters,
		SnapshotDir:    cfg.SnapshotDir,
		DefaultAttacks: cfg.DefaultAttacks,
	}
	if advisor != nil {
		h.Advisor = advisor
	}

	if cfg.OneBot.WSURL != "" && !opts.cli {
		return runOneBot(ctx, cfg.OneBot, h)
	}
	return runCLI(ctx, os.Stdin, os.Stdout, h)
}

func runOneBot(ctx context.Context, cfg config.OneBotConfig, h *command.Handler) error {
	fmt.Println("========================================")
	fmt.Println("      DPR Calculator - OneBot Mode      ")
	fmt.Println("========================================")

	client := bot.New(bot.Config{
		WSURL:       cfg.WSURL,
		AccessToken: cfg.AccessToken,
	})

	client.GroupMsgHandler = func(groupID int64, senderID int64, msg string) {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Panic in GroupMsgHandler: %v", r)
			}
		}()

		if !command.IsCommand(msg) {
			msg = ".help"
		}
		reply := h.Handle(ctx, groupID, msg)
		if err := client.SendGroupMsg(groupID, fmt.Sprintf("[CQ:at,qq=%d]\n%s", senderID, reply)); err != nil {
			logrus.Errorf("Failed to reply in group %d: %v", groupID, err)
		}
	}

	err := client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runCLI(ctx context.Context, in io.Reader, out io.Writer, h *command.Handler) error {
	fmt.Fprintln(out, "========================================")
	fmt.Fprintln(out, "      DPR Calculator - CLI Mode         ")
	fmt.Fprintln(out, "========================================")
	fmt.Fprintln(out, command.Help)
	fmt.Fprintln(out, "  .exit / .quit                                   - 退出程序")
	fmt.Fprintln(out, "========================================")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\nUser > ")
		var input string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nBye!")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input = strings.TrimSpace(line)
		}
		if input == "" {
			continue
		}

		if input == ".exit" || input == ".quit" {
			fmt.Fprintln(out, "Bye!")
			return nil
		}
		if !command.IsCommand(input) {
			fmt.Fprintln(out, "Commands start with '.', try .help")
			continue
		}
		fmt.Fprintf(out, "Bot: %s\n", h.Handle(ctx, LOCAL_GROUP_ID, input))
	}
}
