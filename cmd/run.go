package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/pipeline"
	"github.com/cruciblelabs/crucible/internal/report"
)

var flagPollInterval time.Duration

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <description>",
		Short: "Run one workflow to completion and print the report",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWorkflow,
	}
	cmd.Flags().DurationVar(&flagPollInterval, "poll-interval", 500*time.Millisecond, "status poll interval")
	return cmd
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	engine := buildEngine(cfg, logger)

	description := strings.Join(args, " ")
	run, err := engine.Start(description)
	if err != nil {
		return err
	}
	fmt.Printf("Workflow %s started\n", run.ID)

	run, err = waitForTerminal(engine, run.ID)
	if err != nil {
		return err
	}

	switch run.Status {
	case pipeline.StatusFailed:
		return fmt.Errorf("workflow failed: %s", run.Error)
	case pipeline.StatusStopped:
		fmt.Println("Workflow stopped")
		return nil
	}

	rep, err := engine.Report(run.ID)
	if err != nil {
		return err
	}
	fmt.Println("\n--- Results ---")
	return report.Render(rep, "table", os.Stdout)
}

// waitForTerminal polls the engine until the workflow reaches a terminal
// status, echoing each phase completion as it lands.
func waitForTerminal(engine *pipeline.Engine, id string) (*pipeline.Run, error) {
	seen := 0
	for {
		run, err := engine.Status(id)
		if err != nil {
			return nil, err
		}
		for ; seen < len(run.PhasesCompleted); seen++ {
			rec := run.PhasesCompleted[seen]
			if rec.SkipReason != "" {
				fmt.Printf("  %s: %s\n", rec.Phase, rec.SkipReason)
			} else {
				fmt.Printf("  %s: done\n", rec.Phase)
			}
		}
		if run.Terminal() {
			return run, nil
		}
		time.Sleep(flagPollInterval)
	}
}
