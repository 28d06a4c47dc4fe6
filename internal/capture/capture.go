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

// Package capture saves piped standard input to a file so that the output of
// an expensive upstream command can be read again without re-running it.
// Capture files are never removed.
package capture

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"agentshim/internal/advisory"
	apperrors "agentshim/internal/errors"
)

// DefaultDir is where capture files are written.
const DefaultDir = "/tmp/cursor_outputs"

const timestampLayout = "20060102_150405"

// Capturer drains piped stdin. The zero value is not usable; see New.
type Capturer struct {
	Dir     string
	Stdin   io.Reader
	IsPipe  func() bool
	Advisor *advisory.Writer
	Now     func() time.Time
	Rand    func() uint32
	PID     int
}

// New returns a Capturer reading os.Stdin and writing into dir.
func New(dir string, advisor *advisory.Writer) *Capturer {
	if dir == "" {
		dir = DefaultDir
	}
	return &Capturer{
		Dir:     dir,
		Stdin:   os.Stdin,
		IsPipe:  FileIsPipe(os.Stdin),
		Advisor: advisor,
		Now:     time.Now,
		Rand:    rand.Uint32,
		PID:     os.Getpid(),
	}
}

// FileIsPipe reports whether f is anything other than a terminal: a pipe, a
// redirected file or /dev/null. Cygwin and MSYS ptys count as terminals.
func FileIsPipe(f *os.File) func() bool {
	return func() bool {
		fd := f.Fd()
		return !term.IsTerminal(int(fd)) && !isatty.IsCygwinTerminal(fd)
	}
}

// Piped reports whether stdin is not an interactive terminal.
func (c *Capturer) Piped() bool {
	return c.IsPipe != nil && c.IsPipe()
}

// Drain reads all of piped stdin into memory. It returns nil when stdin is a
// terminal or the pipe was empty.
func (c *Capturer) Drain() ([]byte, error) {
	if !c.Piped() || c.Stdin == nil {
		return nil, nil
	}
	data, err := io.ReadAll(c.Stdin)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCapture, "read piped input", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Capture saves piped stdin to a new file named after prefix and returns its
// path. It returns "" without touching the filesystem when there is no input.
func (c *Capturer) Capture(prefix string) (string, error) {
	data, err := c.Drain()
	if err != nil || data == nil {
		return "", err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeCapture, "create capture directory", err)
	}

	path, err := c.write(prefix, data)
	if err != nil {
		return "", err
	}
	if c.Advisor != nil {
		c.Advisor.CaptureSaved(path, int64(len(data)))
	}
	return path, nil
}

func (c *Capturer) write(prefix string, data []byte) (string, error) {
	for {
		path := c.UniqueName(prefix)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			// Lost a race with another invocation; pick a new name.
			continue
		}
		if err != nil {
			return "", apperrors.Wrap(apperrors.CodeCapture, "create capture file", err)
		}
		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", apperrors.Wrap(apperrors.CodeCapture, "write capture file", err)
		}
		if err := file.Close(); err != nil {
			return "", apperrors.Wrap(apperrors.CodeCapture, "close capture file", err)
		}
		return path, nil
	}
}

// UniqueName returns a path in the capture directory that does not exist at
// the time of the call. Any Lstat failure other than success counts as free;
// creating the file will surface real errors.
func (c *Capturer) UniqueName(prefix string) string {
	for {
		path := c.candidate(prefix)
		if _, err := os.Lstat(path); err != nil {
			return path
		}
	}
}

func (c *Capturer) candidate(prefix string) string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	random := rand.Uint32
	if c.Rand != nil {
		random = c.Rand
	}
	name := fmt.Sprintf("%s_%d_%s_%08x.txt", prefix, c.PID, now().Format(timestampLayout), random())
	return filepath.Join(c.Dir, name)
}
