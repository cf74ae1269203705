package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/actorclient"
	"github.com/xkilldash9x/tasker-cli/internal/browser"
	"github.com/xkilldash9x/tasker-cli/internal/config"
	"github.com/xkilldash9x/tasker-cli/internal/eventing"
	"github.com/xkilldash9x/tasker-cli/internal/observability"
	"github.com/xkilldash9x/tasker-cli/internal/reporting"
	"github.com/xkilldash9x/tasker-cli/internal/retry"
	"github.com/xkilldash9x/tasker-cli/internal/tasker"
	"github.com/xkilldash9x/tasker-cli/internal/taskfile"
	"github.com/xkilldash9x/tasker-cli/internal/vlm"
)

// statusIcons is presentation only; nothing below the CLI renders icons.
var statusIcons = map[schemas.TodoStatus]string{
	schemas.TodoPending:    "[ ]",
	schemas.TodoInProgress: "[~]",
	schemas.TodoCompleted:  "[x]",
	schemas.TodoSkipped:    "[-]",
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <taskfile>",
		Short: "Executes the task described by a YAML taskfile",
		Args:  cobra.ExactArgs(1),
		// PreRunE binds flags so command-line values override the config
		// file and environment with the right precedence.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("run.max_steps_per_todo", cmd.Flags().Lookup("max-steps")); err != nil {
				return err
			}
			if err := viper.BindPFlag("run.continue_on_failure", cmd.Flags().Lookup("continue-on-failure")); err != nil {
				return err
			}
			if err := viper.BindPFlag("run.export_format", cmd.Flags().Lookup("format")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("retry.max_attempts", cmd.Flags().Lookup("attempts"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			task, err := taskfile.Load(args[0])
			if err != nil {
				return err
			}

			runID := uuid.New().String()
			runDir := filepath.Join(cfg.Run.ArtifactDir, runID)
			if err := os.MkdirAll(runDir, 0o755); err != nil {
				return fmt.Errorf("cannot create artifact directory %q: %w", runDir, err)
			}

			logger.Info("Starting new task run",
				zap.String("runID", runID),
				zap.String("taskfile", args[0]),
				zap.String("instruction", task.Instruction),
				zap.Int("todos", len(task.Todos)),
				zap.Int("max_steps_per_todo", cfg.Run.MaxStepsPerTodo),
			)

			components, err := initializeRunComponents(ctx, cfg, task, runDir, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize run components: %w", err)
			}
			defer components.Shutdown()

			policy := retry.Policy{
				MaxAttempts: cfg.Retry.MaxAttempts,
				BaseDelay:   cfg.Retry.BaseDelay,
				MaxDelay:    cfg.Retry.MaxDelay,
			}
			result, err := retry.Run(ctx, policy, components.executeAttempt, logger)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted gracefully", zap.String("runID", runID))
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Run failed", zap.Error(err), zap.String("runID", runID))
				return err
			}

			var checks []schemas.CheckResult
			if components.Verifier != nil {
				checks = components.Verifier.Results()
			}

			reportPath, err := exportReport(cfg, task, result, components.Sink.Events(), checks, runDir, logger)
			if err != nil {
				return err
			}

			printRunSummary(task, result, reportPath)
			if !result.Success {
				return fmt.Errorf("task did not complete successfully")
			}
			return nil
		},
	}

	runCmd.Flags().IntP("max-steps", "s", 0, "Step budget per todo. (Overrides config/env)")
	runCmd.Flags().Bool("continue-on-failure", false, "Keep running later todos after one is skipped. (Overrides config/env)")
	runCmd.Flags().StringP("format", "f", "", "Report format, 'html' or 'json'. (Overrides config/env)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().IntP("attempts", "a", 0, "Total run attempts for transient failures. (Overrides config/env)")

	return runCmd
}

// runComponents holds initialized services.
type runComponents struct {
	Session  *browser.Session
	Sink     *eventing.Sink
	Tasker   *tasker.Tasker
	Verifier *vlm.Verifier
}

// Shutdown closes everything that owns a process or connection.
func (rc *runComponents) Shutdown() {
	if rc.Session != nil {
		rc.Session.Close()
	}
}

// executeAttempt is the retried unit of work: one full orchestration run.
// Verification answers belong to one attempt, so they are cleared before
// each rerun.
func (rc *runComponents) executeAttempt(ctx context.Context) (*schemas.RunResult, error) {
	if rc.Verifier != nil {
		rc.Verifier.Reset()
	}
	return rc.Tasker.Execute(ctx)
}

// initializeRunComponents handles dependency injection.
func initializeRunComponents(ctx context.Context, cfg *config.Config, task schemas.Task, runDir string, logger *zap.Logger) (*runComponents, error) {
	components := &runComponents{}

	// 1. Browser session (perception + actuation).
	session, err := browser.NewSession(ctx, cfg.Browser, runDir, logger)
	if err != nil {
		return components, fmt.Errorf("failed to start browser session: %w", err)
	}
	components.Session = session

	// 2. Actor model client.
	client, err := actorclient.New(cfg.Actor, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize actor client: %w", err)
	}

	// 3. Event sink.
	components.Sink = eventing.NewSink()

	// 4. Optional per-todo verification. The verifier hooks into the
	// orchestrator so each check question is asked against the page state
	// right after its todo completes, not against the final page.
	opts := tasker.Options{
		MaxStepsPerTodo:   cfg.Run.MaxStepsPerTodo,
		ContinueOnFailure: cfg.Run.ContinueOnFailure,
	}
	if cfg.Checker.Enabled {
		checker, err := vlm.New(cfg.Checker, logger)
		if err != nil {
			return components, fmt.Errorf("failed to initialize checker: %w", err)
		}
		components.Verifier = vlm.NewVerifier(session, checker, logger)
		opts.OnTodoCompleted = components.Verifier.OnTodoCompleted
	}

	// 5. Engine: executor -> runner -> orchestrator.
	executor, err := tasker.NewStepExecutor(session, client, session, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize step executor: %w", err)
	}
	runner := tasker.NewTodoRunner(executor, logger)

	t, err := tasker.New(task, runner, components.Sink, opts, logger)
	if err != nil {
		return components, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	components.Tasker = t

	return components, nil
}

// exportReport writes the run report into the artifact directory and
// returns its path.
func exportReport(cfg *config.Config, task schemas.Task, result *schemas.RunResult, events []schemas.Event, checks []schemas.CheckResult, runDir string, logger *zap.Logger) (string, error) {
	report := reporting.Report{
		Instruction: task.Instruction,
		Success:     result.Success,
		GeneratedAt: time.Now(),
		Events:      events,
		Todos:       result.Todos,
		Summary:     result.Summary,
		Checks:      checks,
	}

	path := filepath.Join(runDir, "report."+cfg.Run.ExportFormat)
	exporter := reporting.NewExporter(report, logger)
	if err := exporter.Export(cfg.Run.ExportFormat, path); err != nil {
		return "", fmt.Errorf("failed to export report: %w", err)
	}
	return path, nil
}

// printRunSummary renders the final todo table for the terminal.
func printRunSummary(task schemas.Task, result *schemas.RunResult, reportPath string) {
	fmt.Printf("\nTask: %s\n", task.Instruction)
	for i, todo := range result.Todos {
		fmt.Printf("  %s %d. %s\n", statusIcons[todo.Status], i+1, todo.Description)
	}

	if result.Success {
		fmt.Println("\nResult: success")
	} else {
		fmt.Println("\nResult: failure")
		if result.Cause != nil {
			fmt.Printf("Cause: %v\n", result.Cause)
		}
	}
	fmt.Printf("Report: %s\n", reportPath)
}
