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

// Package delegate runs the real tool behind a shim and turns its outcome
// into an exit status.
package delegate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	apperrors "agentshim/internal/errors"
	"agentshim/internal/paths"
)

// FallbackExitCode is returned when the child could not be started or ended
// without an exit status.
const FallbackExitCode = 1

// Executor starts the real tool with the shim's standard streams.
type Executor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Self is the running shim binary; the real tool must not resolve to it.
	Self   string
	Logger zerolog.Logger
}

// NewExecutor returns an Executor wired to the process's standard streams.
func NewExecutor(logger zerolog.Logger) *Executor {
	self, err := os.Executable()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot locate own executable; recursion guard disabled")
		self = ""
	}
	return &Executor{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Self:   self,
		Logger: logger,
	}
}

// Run executes binary with args and returns its exit status. With input nil
// the child inherits stdin; otherwise input is fed to the child through a
// pipe. A start failure returns FallbackExitCode and an error.
func (e *Executor) Run(ctx context.Context, binary string, args []string, input []byte) (int, error) {
	if _, err := paths.ResolveBinary(binary, e.Self); err != nil {
		return FallbackExitCode, apperrors.Wrap(apperrors.CodeDelegate, "cannot run "+binary, err)
	}

	// argv[0] stays the configured path so multi-call binaries still see
	// the tool name they were linked as.
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = e.Stdin
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	e.Logger.Debug().Str("binary", binary).Strs("args", args).Bool("forward_input", input != nil).Msg("Delegating")

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			e.Logger.Warn().Str("state", exitErr.String()).Msg("Child ended without exit status")
			return FallbackExitCode, nil
		}
		return code, nil
	}
	return FallbackExitCode, apperrors.Wrap(apperrors.CodeDelegate, "cannot run "+binary, err)
}
