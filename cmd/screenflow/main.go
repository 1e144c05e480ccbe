package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"screenflow.dev/screenflow-go/internal/config"
	"screenflow.dev/screenflow-go/internal/detector"
	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/events"
	"screenflow.dev/screenflow-go/internal/pages"
	"screenflow.dev/screenflow-go/internal/screen"
	"screenflow.dev/screenflow-go/internal/workflow"
)

func main() {
	settingsPath := flag.String("settings", "Settings.ini", "Path to settings file")
	configPath := flag.String("config", "", "Path to page configuration document (overrides settings)")
	replayDir := flag.String("replay", "", "Directory of PNG frames to run against (overrides settings)")
	dbPath := flag.String("db", "", "Path to database file (overrides settings)")
	flag.Parse()

	settings, err := config.LoadFromINI(*settingsPath)
	if err != nil {
		log.Printf("Settings not loaded (%v), using defaults", err)
		settings = config.Defaults()
	}
	if *configPath != "" {
		settings.ConfigPath = *configPath
	}
	if *replayDir != "" {
		settings.ReplayDir = *replayDir
	}
	if *dbPath != "" {
		settings.DatabasePath = *dbPath
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "validate":
		err = runValidate(settings)
	case "run":
		if len(args) < 2 {
			log.Fatal("usage: screenflow run <workflow.yaml>")
		}
		err = runWorkflow(settings, args[1])
	case "store-save":
		err = runStoreSave(settings)
	case "store-list":
		err = runStoreList(settings)
	case "history":
		err = runHistory(settings)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `screenflow - screen automation engine

Usage:
  screenflow [flags] validate              Validate the page configuration
  screenflow [flags] run <workflow.yaml>   Run a workflow against the replay source
  screenflow [flags] store-save            Save the page configuration to the database
  screenflow [flags] store-list            List stored page configurations
  screenflow [flags] history               Show recent workflow runs

Flags:
  -settings path   Settings file (default Settings.ini)
  -config path     Page configuration document
  -replay dir      Directory of PNG frames to capture from
  -db path         Database file`)
}

func loadConfiguration(settings *config.Settings) (*pages.PageConfiguration, error) {
	data, err := os.ReadFile(settings.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read page configuration: %w", err)
	}
	cfg, err := pages.UnmarshalConfiguration(data)
	if err != nil {
		return nil, err
	}
	if err := pages.ValidateConfiguration(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runValidate(settings *config.Settings) error {
	cfg, err := loadConfiguration(settings)
	if err != nil {
		return err
	}
	log.Printf("Configuration %q valid: %d pages, %d elements, %d transitions",
		cfg.Name, len(cfg.Pages), len(cfg.Elements), len(cfg.Transitions))
	return nil
}

func runWorkflow(settings *config.Settings, workflowPath string) error {
	cfg, err := loadConfiguration(settings)
	if err != nil {
		return err
	}

	wf, err := workflow.LoadFile(workflowPath)
	if err != nil {
		return err
	}

	if settings.ReplayDir == "" {
		return fmt.Errorf("no capture source configured; set -replay or replayDir in settings")
	}
	source, err := screen.LoadReplayDirectory(settings.ReplayDir)
	if err != nil {
		return err
	}

	store, err := pages.OpenStore(settings.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := events.NewEventBus(64)
	defer bus.Stop()
	subscribeProgress(bus)

	svc := screen.NewService(source, screen.NullInjector{}).
		WithCacheDuration(settings.CacheDuration).
		WithRetry(settings.CaptureAttempts, settings.CaptureBackoff)

	registry := element.NewRegistry()
	det := detector.New(registry, bus)

	rt := workflow.NewRuntime(svc, registry, det, cfg)
	rt.PollInterval = settings.PollInterval
	rt.SettleDelay = settings.SettleDelay

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor := workflow.NewExecutor(bus, store)
	report, runErr := executor.Run(ctx, rt, wf)

	if report.Succeeded {
		log.Printf("Run %s succeeded: %d steps", report.RunID, report.StepsCompleted)
	} else {
		log.Printf("Run %s failed at %q (%s): %s",
			report.RunID, report.FailedStep, report.FailureKind, report.FailureReason)
	}
	for name, value := range report.Outputs {
		log.Printf("Output %s = %v", name, value)
	}
	return runErr
}

func subscribeProgress(bus events.EventBus) {
	progress := func(e events.Event) {
		log.Printf("[%s] %v", e.Type, e.Data)
	}
	bus.Subscribe(events.EventTypeStepStarted, progress)
	bus.Subscribe(events.EventTypeStepSucceeded, progress)
	bus.Subscribe(events.EventTypeStepFailed, progress)
	bus.Subscribe(events.EventTypePageDetected, progress)
	bus.Subscribe(events.EventTypePageAmbiguous, progress)
}

func runStoreSave(settings *config.Settings) error {
	cfg, err := loadConfiguration(settings)
	if err != nil {
		return err
	}

	store, err := pages.OpenStore(settings.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveConfiguration(cfg); err != nil {
		return err
	}
	log.Printf("Saved configuration %q", cfg.Name)
	return nil
}

func runStoreList(settings *config.Settings) error {
	store, err := pages.OpenStore(settings.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := store.ListConfigurations()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Println("No stored configurations")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runHistory(settings *config.Settings) error {
	store, err := pages.OpenStore(settings.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		log.Println("No runs recorded")
		return nil
	}
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded {
			status = fmt.Sprintf("failed at %q: %s", r.FailedStep, r.FailureReason)
		}
		fmt.Printf("%s  %-20s %-20s steps=%d  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Configuration, r.Workflow, r.StepsCompleted, status)
	}
	return nil
}
