package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/studentcode/sandbox/internal/config"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/events"
	"github.com/studentcode/sandbox/internal/logging"
	"github.com/studentcode/sandbox/internal/program"
	"github.com/studentcode/sandbox/internal/telemetry"
	"github.com/studentcode/sandbox/internal/tui"
	"github.com/studentcode/sandbox/internal/turtle"
	"golang.org/x/term"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	runtimeLogger, err := logging.New(ctx,
		logging.WithLevel(cfg.LogLevel),
		logging.WithMaxFiles(cfg.LogMaxFiles),
		logging.WithRunID(runID),
	)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		if closeErr := runtimeLogger.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", closeErr)
		}
	}()

	a := newApp(cfg, runtimeLogger.Logger)
	defer a.shutdownTelemetry()

	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// app carries the process-wide dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger *log.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	isTerminal  func() bool
	pick        func(ctx context.Context, current program.Scenario) (program.Scenario, error)
	runTUI      func(ctx context.Context, model tea.Model) error
	initTracing func(ctx context.Context, settings telemetry.Settings) (func(), error)
	shutdown    func()

	headless     bool
	summary      bool
	otelEndpoint string
}

func newApp(cfg *config.Config, logger *log.Logger) *app {
	if cfg == nil {
		defaults := config.Defaults()
		cfg = &defaults
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &app{
		cfg:         cfg,
		logger:      logger,
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		isTerminal:  func() bool { return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) },
		runTUI:      runBubbleTea,
		initTracing: telemetry.Init,
	}
	a.pick = a.pickScenario
	return a
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sandbox",
		Short:         "Run student programs against a text or turtle-graphics console",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenario, err := program.ParseScenario(a.cfg.Scenario)
			if err != nil {
				return fmt.Errorf("config scenario: %w", err)
			}
			if !a.headless && a.isTerminal() {
				scenario, err = a.pick(cmd.Context(), scenario)
				if err != nil {
					return err
				}
			}
			return a.runScenario(cmd.Context(), scenario)
		},
	}

	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.PersistentFlags().BoolVar(&a.headless, "headless", false, "run without the terminal UI, feeding input lines from stdin")
	root.PersistentFlags().BoolVar(&a.summary, "summary", false, "print a YAML run summary after a headless run")
	root.PersistentFlags().StringVar(&a.otelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint for traces (overrides config)")

	root.AddCommand(
		newScenarioCommand(a, program.ScenarioText),
		newScenarioCommand(a, program.ScenarioTurtle),
		newVersionCommand(),
		newBugreportCommand(a.logger),
	)

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}
		if a.cfg == nil {
			return errors.New("config is required")
		}
		a.logger.With("command", cmd.Name()).Debug("command invocation", "sources", a.cfg.Sources)
		return a.startTelemetry(cmd.Context())
	}
	return root
}

func newScenarioCommand(a *app, scenario program.Scenario) *cobra.Command {
	return &cobra.Command{
		Use:   string(scenario),
		Short: scenario.Description(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScenario(cmd.Context(), scenario)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sandbox version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}

func (a *app) startTelemetry(ctx context.Context) error {
	if a.shutdown != nil {
		return nil
	}
	endpoint := strings.TrimSpace(a.otelEndpoint)
	if endpoint == "" {
		endpoint = a.cfg.OTELEndpoint
	}
	var fallback io.Writer
	if a.headless {
		fallback = a.errOut
	}
	shutdown, err := a.initTracing(ctx, telemetry.Settings{Endpoint: endpoint, Fallback: fallback})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) shutdownTelemetry() {
	if a.shutdown != nil {
		a.shutdown()
	}
}

func (a *app) pickScenario(ctx context.Context, current program.Scenario) (program.Scenario, error) {
	choice := string(current)
	options := make([]huh.Option[string], 0, len(program.Scenarios()))
	for _, scenario := range program.Scenarios() {
		options = append(options, huh.NewOption(scenario.Description(), string(scenario)))
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Choose a program to run").
			Options(options...).
			Value(&choice),
	)).WithShowHelp(true)
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("choose scenario: %w", err)
	}
	return program.ParseScenario(choice)
}

// newBackend composes the console for a scenario. The backend is chosen here
// and nowhere else.
func (a *app) newBackend(scenario program.Scenario, bus events.Bus) console.Interactive {
	options := []console.Option{
		console.WithMaxLines(a.cfg.MaxLines),
		console.WithBus(bus),
		console.WithLogger(a.logger),
		console.WithProgram(scenario.ProgramName()),
	}
	if scenario == program.ScenarioTurtle {
		return turtle.NewConsole(program.Loops, turtle.Settings{
			Width:     a.cfg.SceneWidth,
			Height:    a.cfg.SceneHeight,
			FrameRate: a.cfg.FrameRate,
			Speeds: turtle.Speeds{
				Movement: a.cfg.MovementSpeed,
				Rotation: a.cfg.RotationSpeed,
			},
		}, options...)
	}
	return console.NewTextConsole(program.Greeter, options...)
}

func (a *app) newBus() *events.InMemoryBus {
	bus := events.New(events.WithLogger(a.logger))
	bus.SubscribeAll(func(event events.Event) {
		a.logger.Debug("event", "type", event.Type, "entity_type", event.EntityType, "entity_id", event.EntityID, "severity", event.Severity)
	})
	return bus
}

func (a *app) runScenario(ctx context.Context, scenario program.Scenario) error {
	if err := a.startTelemetry(ctx); err != nil {
		return err
	}
	bus := a.newBus()
	defer bus.Close()
	backend := a.newBackend(scenario, bus)
	a.logger.Info("scenario selected", "scenario", string(scenario), "headless", a.headless)

	if a.headless {
		return a.runHeadless(ctx, scenario, backend)
	}

	model := tui.NewAppModel(backend, tui.Options{
		Program:       scenario.ProgramName(),
		TickInterval:  a.cfg.TickInterval,
		FrameInterval: a.cfg.FrameInterval(),
		Bus:           bus,
		Logger:        a.logger,
	})
	defer backend.Stop()
	return a.runTUI(ctx, model)
}

func runBubbleTea(ctx context.Context, model tea.Model) error {
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
