package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nm3210/mpgc/internal/script"
)

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <script>",
		Short: "Replay a script and render the final block-state grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0])
		},
	}
	return cmd
}

func runDump(path string) error {
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

	writeDump(os.Stdout, h.Dump())
	return nil
}

// writeDump colorizes the plain '·'/'*'/'-'/'#' glyph grid when out is
// a real terminal, falling back to the uncolored glyphs otherwise.
func writeDump(out *os.File, grid string) {
	if !isatty.IsTerminal(out.Fd()) {
		fmt.Fprint(out, grid)
		return
	}
	w := colorable.NewColorable(out)
	colorize(w, grid)
}

func colorize(w io.Writer, grid string) {
	const (
		reset  = "\x1b[0m"
		head   = "\x1b[32m" // green
		tail   = "\x1b[2m"  // dim
		marked = "\x1b[33m" // yellow
	)
	for _, r := range grid {
		switch r {
		case '*':
			fmt.Fprint(w, head, string(r), reset)
		case '-':
			fmt.Fprint(w, tail, string(r), reset)
		case '#':
			fmt.Fprint(w, marked, string(r), reset)
		default:
			fmt.Fprint(w, string(r))
		}
	}
}
