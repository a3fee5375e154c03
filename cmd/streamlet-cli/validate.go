package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamlet-go/streamlet/internal/app"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a flow configuration and its compiled chains",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := requireConfigPath(); err != nil {
		return err
	}

	a, err := app.NewWithoutConnecting(map[string]interface{}{"config": configPath})
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("configuration and compiled chains are valid")
	printChainTable(a.Chains())
	return nil
}
