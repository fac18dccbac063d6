package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wippyai/strffi/signature"
	"github.com/wippyai/strffi/transcoder"
)

var checkNoJSON bool

// checkCmd analyzes a WIT file without writing anything
var checkCmd = &cobra.Command{
	Use:   "check <wit-file>",
	Short: "Analyze WIT declarations",
	Long:  "Parse and analyze every function of a WIT file and print its host call shape and argument bounds.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		sigs, err := signature.ParseWIT(string(data))
		if err != nil {
			return err
		}

		opts := signature.Options{StructuredTransport: transcoder.StructuredTransport && !checkNoJSON}
		out := cmd.OutOrStdout()
		for _, sig := range sigs {
			plan, err := signature.Analyze(sig, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-32s args %d..%d  %s\n", signature.Usage(sig), plan.Arity.Min, plan.Arity.Max, signature.String(sig))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkNoJSON, "no-json", false, "analyze as if structured transport were disabled")
	rootCmd.AddCommand(checkCmd)
}
