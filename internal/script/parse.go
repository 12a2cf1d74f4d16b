package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// Op identifies which heap operation a Command drives.
type Op int

const (
	OpAlloc Op = iota
	OpFree
	OpCollect
	OpPin
	OpLongLived
)

// Command is one parsed line of an allocation script.
type Command struct {
	Op     Op
	Line   int
	Raw    string
	NBytes uintptr
	Finalizer,
	LongLived bool
	// Handle is the $N reference a free/pin/longlived command targets.
	Handle int
}

// Parse reads a line-oriented allocation script, one command per
// line. Blank lines and lines starting with # are skipped.
func Parse(r io.Reader) ([]Command, error) {
	var cmds []Command
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("script: line %d: %w", lineNo, err)
		}
		cmd.Line = lineNo
		cmd.Raw = line
		cmds = append(cmds, cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return cmds, nil
}

func parseLine(line string) (Command, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("tokenizing: %w", err)
	}
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "alloc":
		return parseAlloc(fields[1:])
	case "free":
		h, err := parseHandle(fields, 1)
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpFree, Handle: h}, nil
	case "collect":
		return Command{Op: OpCollect}, nil
	case "pin":
		h, err := parseHandle(fields, 1)
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpPin, Handle: h}, nil
	case "longlived":
		h, err := parseHandle(fields, 1)
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpLongLived, Handle: h}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseAlloc(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("alloc requires a byte count")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return Command{}, fmt.Errorf("alloc: invalid byte count %q: %w", args[0], err)
	}
	cmd := Command{Op: OpAlloc, NBytes: uintptr(n)}
	for _, flag := range args[1:] {
		key, val, ok := strings.Cut(flag, "=")
		if !ok {
			return Command{}, fmt.Errorf("alloc: malformed flag %q, want key=value", flag)
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return Command{}, fmt.Errorf("alloc: flag %q: %w", flag, err)
		}
		switch key {
		case "finalizer":
			cmd.Finalizer = b
		case "longlived":
			cmd.LongLived = b
		default:
			return Command{}, fmt.Errorf("alloc: unknown flag %q", key)
		}
	}
	return cmd, nil
}

func parseHandle(fields []string, idx int) (int, error) {
	if idx >= len(fields) {
		return 0, fmt.Errorf("%s requires a $N handle", fields[0])
	}
	tok := fields[idx]
	if !strings.HasPrefix(tok, "$") {
		return 0, fmt.Errorf("%q is not a $N handle", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", tok, err)
	}
	return n, nil
}
