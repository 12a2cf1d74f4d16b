package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/blakesmith/ar"
	"github.com/gofrs/flock"
	"github.com/sigurn/crc16"
	"github.com/spf13/cobra"

	"github.com/nm3210/mpgc/internal/script"
)

func init() {
	rootCmd.AddCommand(newSnapshotCmd())
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <script> <out.ar>",
		Short: "Replay a script and write the raw ATB/FTB/pool bytes as an ar archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0], args[1])
		},
	}
	return cmd
}

func runSnapshot(scriptPath, outPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("heapctl: opening script %s: %w", scriptPath, err)
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

	lock := flock.New(outPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("heapctl: locking %s: %w", outPath, err)
	}
	defer lock.Unlock()

	return writeSnapshot(outPath, h.ATB(), h.FTB(), h.Pool())
}

func writeSnapshot(outPath string, atb, ftb, pool []byte) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("heapctl: creating %s: %w", outPath, err)
	}
	defer out.Close()

	w := ar.NewWriter(out)
	if err := w.WriteGlobalHeader(); err != nil {
		return fmt.Errorf("heapctl: writing ar header: %w", err)
	}

	entries := []struct {
		name string
		data []byte
	}{
		{"atb", atb},
		{"ftb", ftb},
		{"pool", pool},
	}
	table := crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
	var sum uint16
	for _, e := range entries {
		if err := w.WriteHeader(&ar.Header{
			Name:    e.name,
			Size:    int64(len(e.data)),
			Mode:    0o644,
			ModTime: time.Now(),
		}); err != nil {
			return fmt.Errorf("heapctl: writing %s header: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return fmt.Errorf("heapctl: writing %s: %w", e.name, err)
		}
		sum = crc16.Update(sum, e.data, table)
	}

	trailer := make([]byte, 2)
	binary.BigEndian.PutUint16(trailer, sum)
	if err := w.WriteHeader(&ar.Header{
		Name:    "crc16",
		Size:    2,
		Mode:    0o644,
		ModTime: time.Now(),
	}); err != nil {
		return fmt.Errorf("heapctl: writing crc16 header: %w", err)
	}
	_, err = w.Write(trailer)
	return err
}
