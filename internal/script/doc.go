// Package script parses and replays the line-oriented allocation
// scripts accepted by heapctl run/watch: one command per line, each
// tokenized shell-style so arguments can carry "key=value" flags.
package script
