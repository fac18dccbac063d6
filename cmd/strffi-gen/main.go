// Command strffi-gen emits the export stubs for a strffi library.
//
//	strffi-gen generate -c strffi.toml
//	strffi-gen check exports.wit
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
