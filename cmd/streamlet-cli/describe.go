package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/streamlet-go/streamlet/internal/app"
	"github.com/streamlet-go/streamlet/internal/registry"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show every task's compiled transform/output chain",
	Args:  cobra.NoArgs,
	RunE:  runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	if err := requireConfigPath(); err != nil {
		return err
	}

	a, err := app.NewWithoutConnecting(map[string]interface{}{"config": configPath})
	if err != nil {
		return err
	}

	chains := a.Chains()
	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(chains)
	}

	printChainTable(chains)
	return nil
}

func printChainTable(chains []app.Chain) {
	if len(chains) == 0 {
		fmt.Println("no tasks configured")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tINPUT\tCRON\tTRANSFORMS\tOUTPUTS")
	for _, c := range chains {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n", c.TaskName, c.InputName, c.Cron, c.Transforms, c.Outputs)
	}
	w.Flush()

	fmt.Println("\nregistered module types:")
	fmt.Printf("  inputs:     %v\n", registry.List(registry.Input))
	fmt.Printf("  transforms: %v\n", registry.List(registry.Transform))
	fmt.Printf("  outputs:    %v\n", registry.List(registry.Output))
}
