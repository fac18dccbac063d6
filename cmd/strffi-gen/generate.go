package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wippyai/strffi/gen"
)

var (
	generateOutput  string
	generateABI     string
	generateWIT     string
	generateGOARCH  []string
	generateExports []string
)

// generateCmd writes the export stubs
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the export stubs",
	Long:  "Read the [generate] table of the config file, analyze the declared functions and write the stubs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadGenerateConfig(cmd)
		if err != nil {
			return err
		}
		if err := gen.Run(cfg); err != nil {
			return err
		}
		if cfg.Output != "-" {
			fmt.Fprintf(os.Stderr, "wrote %s (%s ABI)\n", cfg.Output, cfg.ABI)
		}
		return nil
	},
}

// loadGenerateConfig reads the config file, when present, and applies flags.
func loadGenerateConfig(cmd *cobra.Command) (gen.Config, error) {
	cfg := gen.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = gen.LoadConfig(configPath)
		// a decoded but incomplete file may still be completed by flags
		if err != nil && cfg.ABI == "" {
			return gen.Config{}, err
		}
	} else if cmd.Flags().Changed("config") {
		return gen.Config{}, fmt.Errorf("config %s: %w", configPath, err)
	}

	if cmd.Flags().Changed("out") {
		cfg.Output = generateOutput
	}
	if cmd.Flags().Changed("abi") {
		cfg.ABI = gen.ABI(generateABI)
	}
	if cmd.Flags().Changed("wit") {
		cfg.WIT = generateWIT
	}
	if cmd.Flags().Changed("goarch") {
		cfg.GOARCH = generateGOARCH
	}
	if cmd.Flags().Changed("export") {
		cfg.Exports = generateExports
	}
	return cfg, cfg.Validate()
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "output file, - for stdout")
	generateCmd.Flags().StringVar(&generateABI, "abi", string(gen.ABICstr), "host ABI: cstr or wasm")
	generateCmd.Flags().StringVar(&generateWIT, "wit", "", "WIT file declaring the exports")
	generateCmd.Flags().StringSliceVar(&generateGOARCH, "goarch", nil, "restrict the stubs to these architectures")
	generateCmd.Flags().StringSliceVar(&generateExports, "export", nil, "export names when no WIT file is used")
	rootCmd.AddCommand(generateCmd)
}
