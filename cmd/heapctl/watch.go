package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-tty"
	"github.com/spf13/cobra"

	"github.com/nm3210/mpgc/internal/script"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <script>",
		Short: "Step through a script one operation at a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args[0])
		},
	}
	return cmd
}

func runWatch(path string) error {
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

	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("heapctl: opening tty: %w", err)
	}
	defer t.Close()

	exec := script.NewExecutor(h)
	for i, cmd := range cmds {
		fmt.Printf("[%d/%d] %s -- press any key to run\n", i+1, len(cmds), cmd.Raw)
		if _, err := t.ReadRune(); err != nil {
			return fmt.Errorf("heapctl: reading keypress: %w", err)
		}
		line, err := exec.Step(cmd)
		if err != nil {
			return fmt.Errorf("heapctl: line %d: %w", cmd.Line, err)
		}
		fmt.Println(line)
		fmt.Println(h.Dump())
	}
	return nil
}
