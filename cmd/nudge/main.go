package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/sitekit/nudge/internal/config"
	"github.com/sitekit/nudge/internal/domain"
	"github.com/sitekit/nudge/internal/logging"
	"github.com/sitekit/nudge/internal/provider"
	"github.com/sitekit/nudge/internal/service"
	"github.com/sitekit/nudge/internal/storage"
)

func main() {
	configPath := flag.String("config", "nudge.yaml", "path to the configuration file")
	sitePath := flag.String("site", "site.yaml", "path to the site snapshot")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	app, err := newApp(cfg, *sitePath)
	if err != nil {
		log.Fatal("Failed to initialize:", err)
	}
	defer app.close()

	if err := app.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	store     service.TaskStore
	closer    func() error
	registry  *provider.Registry
	evaluator *service.Evaluator
	tasks     *service.TaskService
	snoozes   *service.SnoozeManager
	trigger   *service.InteractiveService
	display   *service.DisplayService
	migrator  *service.Migrator
	ledger    *service.PointsLedger
}

func newApp(cfg *config.Config, sitePath string) (*app, error) {
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)

	var store service.TaskStore
	closer := func() error { return nil }
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		store = s
		closer = s.Close
	default:
		store = storage.NewMemoryStore()
	}

	site, err := provider.LoadSnapshot(sitePath)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	staleAfter := time.Duration(cfg.Content.StaleAfterDays) * 24 * time.Hour
	for _, p := range []domain.Provider{
		provider.NewSiteIconProvider(site),
		provider.NewTaglineProvider(site),
		provider.NewDisableCommentsProvider(site),
		provider.NewCoreUpdateProvider(site),
		provider.NewCreateContentProvider(site),
		provider.NewReviewPostProvider(site, staleAfter, cfg.Content.MaxReviewTasks),
		provider.NewShareFeedbackProvider(),
	} {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	bridge := service.NewCelebrationBridge()
	ledger := service.NewPointsLedger()
	bridge.Subscribe(ledger)
	snoozes := service.NewSnoozeManager(store)

	return &app{
		cfg:       cfg,
		store:     store,
		closer:    closer,
		registry:  registry,
		evaluator: service.NewEvaluator(registry, store, snoozes, bridge, logger),
		tasks:     service.NewTaskService(store, bridge),
		snoozes:   snoozes,
		trigger:   service.NewInteractiveService(registry, store, bridge),
		display:   service.NewDisplayService(registry, store),
		migrator:  service.NewMigrator(store, logger),
		ledger:    ledger,
	}, nil
}

func (a *app) close() {
	if err := a.closer(); err != nil {
		log.Println("Failed to close store:", err)
	}
}

// adminContext grants every built-in capability; the CLI always acts as the
// site administrator.
func adminContext() domain.EvalContext {
	return domain.EvalContext{
		Now: time.Now().UTC(),
		Principal: domain.Grants(
			domain.CapManageOptions,
			domain.CapEditPosts,
			domain.CapUpdateCore,
			domain.CapModerateComments,
		),
	}
}

func (a *app) run(cmd string, args []string) error {
	ec := adminContext()

	switch cmd {
	case "evaluate":
		if err := a.evaluator.Run(ec); err != nil {
			return err
		}
		return a.cmdList(ec)
	case "list":
		return a.cmdList(ec)
	case "snooze":
		return a.cmdSnooze(args, ec)
	case "unsnooze":
		if len(args) != 1 {
			return fmt.Errorf("usage: nudge unsnooze <task-id>")
		}
		return a.snoozes.Unsnooze(domain.Identity(args[0]), ec.Now)
	case "ack":
		return a.cmdAck(args, ec)
	case "dismiss":
		if len(args) != 1 {
			return fmt.Errorf("usage: nudge dismiss <task-id>")
		}
		return a.tasks.Dismiss(domain.Identity(args[0]), ec.Now)
	case "complete":
		return a.cmdComplete(args, ec)
	case "migrate":
		return a.cmdMigrate()
	case "points":
		fmt.Printf("Total points earned this session: %d\n", a.ledger.Total())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdList(ec domain.EvalContext) error {
	grouped, err := a.display.OpenByCategory(ec, a.cfg.Display.CategoryCaps, a.cfg.Display.DefaultCap)
	if err != nil {
		return err
	}
	if len(grouped) == 0 {
		fmt.Println("No open suggestions. Nice work!")
		return nil
	}

	heading := color.New(color.FgCyan, color.Bold)
	celebrate := color.New(color.FgGreen)

	categories := make([]string, 0, len(grouped))
	for c := range grouped {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		heading.Printf("%s\n", strings.ToUpper(category))
		for _, rec := range grouped[category] {
			marker := " "
			if rec.Status == domain.StatusPendingCelebration {
				marker = celebrate.Sprint("*")
			}
			fmt.Printf("  %s %-40s %2dpt  %s\n", marker, rec.ID, rec.Points, rec.Title)
		}
	}
	return nil
}

func (a *app) cmdSnooze(args []string, ec domain.EvalContext) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: nudge snooze <task-id|provider-id> <duration>")
	}
	d, err := domain.ParseSnoozeDuration(args[1])
	if err != nil {
		return err
	}
	return a.snoozes.Snooze(args[0], d, ec.Now)
}

func (a *app) cmdAck(args []string, ec domain.EvalContext) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: nudge ack <task-id>")
	}
	rec, err := a.tasks.Acknowledge(domain.Identity(args[0]), ec.Now)
	if err != nil {
		return err
	}
	color.Green("Completed %s (+%d points)", rec.ID, rec.Points)
	return nil
}

func (a *app) cmdComplete(args []string, ec domain.EvalContext) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nudge complete <provider-id> [key=value ...]")
	}
	payload := make(map[string]interface{})
	for _, arg := range args[1:] {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("payload arguments must be key=value, got %q", arg)
		}
		payload[k] = v
	}

	result, err := a.trigger.Complete(args[0], payload, ec)
	if err != nil {
		return err
	}
	if result.AlreadyCompleted {
		fmt.Printf("%s was already completed\n", result.TaskID)
		return nil
	}
	color.Green("Completed %s (+%d points)", result.TaskID, result.Points)
	return nil
}

func (a *app) cmdMigrate() error {
	report, err := a.migrator.Run()
	if err != nil {
		return err
	}
	fmt.Printf("Scanned %d records: %d rewritten, %d left as opaque history\n",
		report.Scanned, report.Rewritten, report.Opaque)
	return nil
}

func printUsage() {
	fmt.Println("Usage: nudge [-config nudge.yaml] [-site site.yaml] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  evaluate                         - Run an evaluation pass, then list open suggestions")
	fmt.Println("  list                             - List open suggestions by category")
	fmt.Println("  ack <task-id>                    - Acknowledge a completed suggestion")
	fmt.Println("  dismiss <task-id>                - Dismiss a suggestion permanently")
	fmt.Println("  snooze <task-id|provider-id> <d> - Snooze (1-week, 1-month, 3-months, 6-months, 1-year, forever)")
	fmt.Println("  unsnooze <task-id>               - Wake a snoozed suggestion")
	fmt.Println("  complete <provider-id> [k=v ...] - Trigger an interactive suggestion")
	fmt.Println("  migrate                          - Rewrite legacy task identities")
	fmt.Println("  points                           - Show points earned this session")
}
