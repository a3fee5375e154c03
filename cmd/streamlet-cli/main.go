// Package main is the streamlet-cli entry point: a cobra command tree
// over the same configuration-loading path the daemon uses, for
// validating and inspecting a flow file without running it. Grounded
// on herki-piper/cmd/root.go's rootCmd/Execute shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/streamlet-go/streamlet/internal/modules"
)

var (
	configPath   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "streamlet-cli",
	Short: "streamlet-cli",
	Long:  "Command-line tool for validating and inspecting streamlet flow configurations.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the flow configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func requireConfigPath() error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	return nil
}
