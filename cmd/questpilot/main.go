// Package main provides the questpilot CLI: it drives a browser against the
// configured host application, runs quests through the in-process bridge,
// and records completion progress.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/questpilot/pkg/bridge"
	"github.com/entrhq/questpilot/pkg/bridge/client"
	"github.com/entrhq/questpilot/pkg/bridge/transport"
	"github.com/entrhq/questpilot/pkg/classifier"
	appconfig "github.com/entrhq/questpilot/pkg/config"
	"github.com/entrhq/questpilot/pkg/logging"
	"github.com/entrhq/questpilot/pkg/presenter"
	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/runner"
	"github.com/entrhq/questpilot/pkg/storage"
	"github.com/entrhq/questpilot/pkg/types"
)

const version = "0.1.0" // Version of the questpilot CLI

// Options holds the parsed command line options.
type Options struct {
	ConfigPath  string
	QuestID     string
	Mode        string
	ListQuests  bool
	ShowStats   bool
	ResetFilter string
	UseHUD      bool
	ShowVersion bool
}

func main() {
	opts := parseFlags()

	if opts.ShowVersion {
		fmt.Printf("questpilot v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		cancel()
		log.Fatalf("questpilot: %v", err)
	}
}

// parseFlags parses command line flags.
func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.ConfigPath, "config", "questpilot.yaml", "Path to the YAML configuration file")
	flag.StringVar(&opts.QuestID, "quest", "", "Quest ID to run")
	flag.StringVar(&opts.Mode, "mode", "", "Execution mode: demo or real (overrides config)")
	flag.BoolVar(&opts.ListQuests, "list", false, "List available quests and exit")
	flag.BoolVar(&opts.ShowStats, "stats", false, "Show progress stats and exit")
	flag.StringVar(&opts.ResetFilter, "reset", "", "Reset progress for sub-apps matching the glob ('*' for all) and exit")
	flag.BoolVar(&opts.UseHUD, "hud", false, "Render progress in the full-screen HUD instead of plain console output")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "questpilot - guided quest automation for assistant widgets\n\n")
		fmt.Fprintf(os.Stderr, "Usage: questpilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  questpilot -config questpilot.yaml -list\n")
		fmt.Fprintf(os.Stderr, "  questpilot -config questpilot.yaml -quest payroll-intro\n")
		fmt.Fprintf(os.Stderr, "  questpilot -config questpilot.yaml -quest payroll-intro -mode real -hud\n")
		fmt.Fprintf(os.Stderr, "  questpilot -config questpilot.yaml -reset 'payroll*'\n")
	}

	flag.Parse()
	return opts
}

func run(ctx context.Context, opts *Options) error {
	cfg, err := appconfig.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Mode != "" {
		cfg.Mode = opts.Mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.NewLogger("cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
	}
	defer logger.Close()
	applyVerbosity(logger, cfg.Logging.Verbosity)

	storagePath, err := cfg.StoragePath()
	if err != nil {
		return err
	}
	store, err := storage.Open(storagePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.ResetFilter != "" {
		filter := opts.ResetFilter
		if filter == "*" {
			filter = ""
		}
		if err := store.ResetAllProgress(ctx, filter); err != nil {
			return err
		}
		fmt.Println("progress reset")
		return nil
	}

	library, err := quest.LoadLibrary(cfg.Quests.LibraryPath)
	if err != nil {
		return err
	}

	if opts.ListQuests {
		return listQuests(ctx, library, store, cfg.Quests.SubAppFilter)
	}
	if opts.ShowStats {
		return showStats(ctx, store, cfg.Quests.SubAppFilter)
	}

	if opts.QuestID == "" {
		return fmt.Errorf("no quest selected; use -quest <id> or -list")
	}
	q := library.Get(opts.QuestID)
	if q == nil {
		return fmt.Errorf("unknown quest %q", opts.QuestID)
	}
	if missing := missingPrereqs(ctx, library, store, q); len(missing) > 0 {
		return fmt.Errorf("quest %s requires completing %s first", q.ID, strings.Join(missing, ", "))
	}

	selectors, err := quest.LoadSelectorMap(cfg.Quests.SelectorPath)
	if err != nil {
		return err
	}

	settings, err := appconfig.NewSettingsStore("")
	if err != nil {
		logger.Warnf("settings store unavailable: %v", err)
	} else {
		s := settings.Get()
		s.Mode = cfg.Mode
		s.LastQuestID = q.ID
		settings.Set(s)
		if err := settings.Save(); err != nil {
			logger.Warnf("failed to save settings: %v", err)
		}
	}

	return runQuest(ctx, cfg, opts, q, selectors, store, logger)
}

// runQuest opens the browser, wires the bridge pair and executes the quest.
func runQuest(ctx context.Context, cfg *appconfig.Config, opts *Options, q *quest.Quest, selectors *quest.SelectorMap, store *storage.Gateway, logger *logging.Logger) error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	if _, err := page.Goto(cfg.Target.URL); err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.Target.URL, err)
	}

	target := client.NewPageTarget(page, cfg.Target.FrameURLPattern, cfg.Target.OpenerSelector, cfg.Target.CloserSelector)
	pageEnd, widgetEnd := transport.NewPair()

	bridgeLogger, _ := logging.NewLogger("bridge")
	defer bridgeLogger.Close()
	clientLogger, _ := logging.NewLogger("client")
	defer clientLogger.Close()

	c := client.New(pageEnd, target, clientLogger,
		client.WithResponseTimeout(cfg.Bridge.ResponseTimeout.Std()))

	// The widget frame only exists once the assistant panel opens; click
	// the opener, then bind the bridge to the discovered frame.
	if err := target.ClickOpener(); err != nil {
		return fmt.Errorf("failed to open assistant panel: %w", err)
	}
	if found, err := c.WaitForTarget(ctx, 15*time.Second); err != nil {
		return err
	} else if !found {
		return client.ErrFrameNotFound
	}
	frame := target.Frame()
	if frame == nil {
		return client.ErrFrameNotFound
	}
	b := bridge.New(bridge.NewFrameDOM(frame), widgetEnd, bridgeLogger)
	go func() {
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			bridgeLogger.Errorf("bridge stopped: %v", err)
		}
	}()

	surface, hudDone := buildSurface(opts.UseHUD)
	runnerLogger, _ := logging.NewLogger("runner")
	defer runnerLogger.Close()

	r, err := runner.New(runner.Options{
		Bridge:     c,
		Store:      store,
		Selectors:  selectors,
		Classifier: classifier.New(),
		Surface:    surface,
		Mode:       runner.Mode(cfg.Mode),
		Logger:     runnerLogger,
	})
	if err != nil {
		return err
	}

	outcome, err := r.Start(ctx, q)
	surface.Hide()
	if hudDone != nil {
		<-hudDone
	}
	if err != nil {
		return fmt.Errorf("quest %s: %w", q.ID, err)
	}
	if outcome != types.OutcomeCompleted {
		fmt.Printf("quest %s finished: %s\n", q.ID, outcome)
	}
	return nil
}

// buildSurface picks the presentation surface. The HUD runs its own event
// loop; the returned channel closes when it exits.
func buildSurface(useHUD bool) (presenter.Surface, <-chan struct{}) {
	if !useHUD {
		return presenter.NewConsole(os.Stdout), nil
	}
	hud := presenter.NewHUD()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := hud.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "hud error: %v\n", err)
		}
	}()
	return hud, done
}

func listQuests(ctx context.Context, library *quest.Library, store *storage.Gateway, filter string) error {
	completedIDs, err := store.GetCompletedQuests(ctx, filter)
	if err != nil {
		return err
	}
	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	for _, q := range library.All() {
		marker := " "
		if completed[q.ID] {
			marker = "✓"
		}
		fmt.Printf("%s %-24s %-20s %3d pts  %s\n", marker, q.ID, q.Category, q.Points, q.Name)
	}
	return nil
}

func showStats(ctx context.Context, store *storage.Gateway, filter string) error {
	stats, err := store.GetUserStats(ctx, filter)
	if err != nil {
		return err
	}
	fmt.Printf("points:    %d\n", stats.TotalPoints)
	fmt.Printf("completed: %d\n", stats.QuestsCompleted)
	fmt.Printf("attempted: %d\n", stats.QuestsAttempted)
	if !stats.LastQuestDate.IsZero() {
		fmt.Printf("last run:  %s\n", stats.LastQuestDate.Format(time.RFC3339))
	}
	return nil
}

func missingPrereqs(ctx context.Context, library *quest.Library, store *storage.Gateway, q *quest.Quest) []string {
	completedIDs, err := store.GetCompletedQuests(ctx, "")
	if err != nil {
		return nil
	}
	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}
	return library.MissingPrerequisites(q.ID, completed)
}

// applyVerbosity maps the config verbosity onto the logger level.
func applyVerbosity(logger *logging.Logger, verbosity string) {
	switch verbosity {
	case "quiet":
		logger.SetLevel(logging.LevelError)
	case "verbose", "debug":
		logger.SetLevel(logging.LevelDebug)
	default:
		logger.SetLevel(logging.LevelInfo)
	}
}
