// Command heapctl drives a gc.Heap for manual inspection, load
// testing, and regression replay. It is not part of the collector's
// public contract — it is a consumer of it.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Inspect and replay scripts against a conservative block heap",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a HeapConfig YAML file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
