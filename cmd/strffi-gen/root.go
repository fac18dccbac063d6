package main

import (
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the top-level command
var rootCmd = &cobra.Command{
	Use:           "strffi-gen",
	Short:         "Generate string-calling-convention exports",
	Long:          "Generate the //export stubs or wasm host module that expose a strffi registry to a host.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "strffi.toml", "config file")
}
