package main

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nm3210/mpgc/gc"
	"github.com/nm3210/mpgc/internal/script"
)

func init() {
	rootCmd.AddCommand(newStatsCmd())
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <script>",
		Short: "Replay a script and print final occupancy statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0])
		},
	}
	return cmd
}

func runStats(path string) error {
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
	if _, err := exec.Run(cmds); err != nil {
		return err
	}

	printInfo(h)
	return nil
}

func printInfo(h *gc.Heap) {
	info := h.Info()
	p := message.NewPrinter(language.English)

	fmt.Printf("total:     %s\n", bytesize.New(float64(info.TotalBytes)))
	fmt.Printf("used:      %s\n", bytesize.New(float64(info.UsedBytes)))
	fmt.Printf("free:      %s\n", bytesize.New(float64(info.FreeBytes)))
	fmt.Printf("max run:   %s\n", bytesize.New(float64(info.MaxFreeRun)))
	p.Printf("1-blocks:  %d\n", info.OneBlockFree)
	p.Printf("2-blocks:  %d\n", info.TwoBlockFree)
	p.Printf("mallocs:   %d\n", info.Mallocs)
	p.Printf("frees:     %d\n", info.Frees)
}
