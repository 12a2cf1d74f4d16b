package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nm3210/mpgc/internal/script"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Replay an allocation script against a fresh heap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args[0])
		},
	}
	return cmd
}

func runScript(path string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("heapctl: opening script %s: %w", path, err)
	}
	defer f.Close()

	cmds, err := script.Parse(f)
	if err != nil {
		return err
	}

	h, r, err := buildHeap(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	exec := script.NewExecutor(h)
	lines, err := exec.Run(cmds)
	for _, line := range lines {
		fmt.Println(line)
	}
	if err != nil {
		return err
	}

	info := h.Info()
	fmt.Printf("done: %d mallocs, %d frees, %d bytes used of %d\n",
		info.Mallocs, info.Frees, info.UsedBytes, info.TotalBytes)
	return nil
}
