package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/streamlet-go/streamlet/internal/app"
)

var (
	runOnce        bool
	disableOutputs bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a flow configuration in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "fire every enabled task exactly once, then exit (parallel dispatch pool only)")
	runCmd.Flags().BoolVar(&disableOutputs, "disable-outputs", false, "build frames but never walk the output chain")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := requireConfigPath(); err != nil {
		return err
	}

	flags := map[string]interface{}{"config": configPath}
	if runOnce {
		flags["run_once"] = true
	}
	if disableOutputs {
		flags["disable_outputs"] = true
	}

	a, err := app.New(flags)
	if err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	if runOnce {
		select {
		case <-a.Scheduler.Done():
		case <-stop:
		}
	} else {
		<-stop
	}

	cancel()
	a.Stop()
	return nil
}
