// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package advisory prints the human-readable notes a shim leaves on stderr
// when it changes what was asked for. Nothing here ever writes to stdout.
package advisory

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	separatorWidth = 58
	label          = "[agent best practice]"
)

var separator = strings.Repeat("━", separatorWidth)

// Writer renders advisories to a single stream.
type Writer struct {
	out io.Writer
}

// NewWriter returns a Writer for out, normally os.Stderr.
func NewWriter(out io.Writer) *Writer {
	if out == nil {
		out = io.Discard
	}
	return &Writer{out: out}
}

// CaptureSaved reports where piped input was stored.
func (w *Writer) CaptureSaved(path string, size int64) {
	w.block(
		fmt.Sprintf("📋 %s piped input saved automatically (%s)", label, humanize.Bytes(uint64(size))),
		fmt.Sprintf("📁 location: %s", path),
		"💡 read this file instead of re-running a slow command",
	)
}

// Enforced reports that an argument was raised to meet a policy.
func (w *Writer) Enforced(original, enforced, detail string) {
	line := fmt.Sprintf("⚠️  %s %s is not enough output, enforced %s", label, original, enforced)
	if detail != "" {
		line += fmt.Sprintf(" (%s)", detail)
	}
	w.block(line, "💡 enough output up front avoids running the command again")
}

// Warning reports a problem the shim worked around.
func (w *Writer) Warning(message string, err error) {
	if err != nil {
		fmt.Fprintf(w.out, "⚠️  %s: %v\n", message, err)
		return
	}
	fmt.Fprintf(w.out, "⚠️  %s\n", message)
}

// Failure reports a fatal shim error.
func (w *Writer) Failure(message string, err error) {
	if err != nil {
		fmt.Fprintf(w.out, "❌ %s: %v\n", message, err)
		return
	}
	fmt.Fprintf(w.out, "❌ %s\n", message)
}

func (w *Writer) block(lines ...string) {
	var b strings.Builder
	b.WriteString(separator)
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(separator)
	b.WriteByte('\n')
	io.WriteString(w.out, b.String())
}
