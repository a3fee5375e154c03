// Package main is the entry point for the streamlet daemon: it loads
// and validates a flow configuration, connects every module, compiles
// the transform/output chain for each task, and drives the cron
// dispatcher until interrupted. Grounded on cmd/flowrunner/main.go's
// App struct and its flag-parse/signal/graceful-shutdown shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/streamlet-go/streamlet/internal/modules"

	"github.com/streamlet-go/streamlet/internal/app"
	"github.com/streamlet-go/streamlet/internal/logging"
)

var (
	configPath     = flag.String("config", "", "Path to the flow configuration file")
	onlyValidate   = flag.Bool("only-validate", false, "Validate configuration and compiled chains, then exit")
	runOnceFlag    = flag.Bool("run-once", false, "Fire every enabled task exactly once, then exit (parallel dispatch pool only)")
	disableOutputs = flag.Bool("disable-outputs", false, "Build frames but never walk the output chain")
	printConfig    = flag.Bool("print-config", false, "Print the merged, validated configuration's version and module counts, then exit")
	dispatchPool   = flag.String("dispatch-pool", "", "Override flow.settings.dispatch_pool (parallel|serial)")
	logLevel       = flag.String("log-level", "", "Override flow.settings.log_level")
)

// parseLogLevelFlag accepts either a Python-logging-style name
// (debug/info/warn/error) or a bare numeric level, per the
// log_level setting's int representation.
func parseLogLevelFlag(s string) (int, error) {
	switch s {
	case "debug":
		return int(logging.LevelDebug), nil
	case "info":
		return int(logging.LevelInfo), nil
	case "warn", "warning":
		return int(logging.LevelWarn), nil
	case "error":
		return int(logging.LevelError), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unrecognized log level %q", s)
	}
	return n, nil
}

func buildFlags() map[string]interface{} {
	flags := map[string]interface{}{}
	if *runOnceFlag {
		flags["run_once"] = true
	}
	if *disableOutputs {
		flags["disable_outputs"] = true
	}
	if *dispatchPool != "" {
		flags["dispatch_pool"] = *dispatchPool
	}
	if *logLevel != "" {
		n, err := parseLogLevelFlag(*logLevel)
		if err != nil {
			log.Fatalf("streamlet: -log-level: %v", err)
		}
		flags["log_level"] = n
	}
	flags["config"] = *configPath
	if *onlyValidate {
		flags["only_validate"] = true
	}
	if *printConfig {
		flags["print_config"] = true
	}
	return flags
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	if *configPath == "" {
		log.Fatal("streamlet: -config is required")
	}

	// --only-validate and --print-config never establish live
	// connections to a config's databases/brokers/endpoints: only the
	// actual run below does.
	newApp := app.New
	if *onlyValidate || *printConfig {
		newApp = app.NewWithoutConnecting
	}

	a, err := newApp(buildFlags())
	if err != nil {
		log.Fatalf("streamlet: failed to initialize: %v", err)
	}

	if *onlyValidate {
		fmt.Println("configuration and compiled chains are valid")
		printChains(a)
		return
	}
	if *printConfig {
		printDocument(a)
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	if *runOnceFlag {
		select {
		case <-a.Scheduler.Done():
		case <-stop:
		}
	} else {
		<-stop
	}

	log.Println("streamlet: shutting down gracefully")
	cancel()
	a.Stop()
}

func printChains(a *app.App) {
	for _, c := range a.Chains() {
		fmt.Printf("task %s (input=%s cron=%q): transforms=%v outputs=%v\n",
			c.TaskName, c.InputName, c.Cron, c.Transforms, c.Outputs)
	}
}

func printDocument(a *app.App) {
	fmt.Printf("version: %s\n", a.Doc.Version)
	fmt.Printf("inputs: %d, transforms: %d, outputs: %d\n",
		len(a.Doc.Inputs), len(a.Doc.Transforms), len(a.Doc.Outputs))
}
