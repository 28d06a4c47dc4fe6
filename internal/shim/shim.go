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

// Package shim wires classification, stdin capture, argument rewriting and
// delegation into the single code path shared by the grep and tail shims.
package shim

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"mvdan.cc/sh/v3/syntax"

	"agentshim/internal/advisory"
	"agentshim/internal/capture"
	"agentshim/internal/delegate"
	apperrors "agentshim/internal/errors"
	"agentshim/internal/policy"
	"agentshim/internal/session"
)

// Tool describes one wrapped utility.
type Tool struct {
	Name          string
	Binary        string
	CapturePrefix string
	Policy        policy.Rewriter
}

// Invocation is what the runner knows about a call once it is classified.
type Invocation struct {
	Args    []string
	Piped   bool
	Verdict session.Verdict
}

// Runner executes a Tool. Outside an agent session it is a transparent
// passthrough.
type Runner struct {
	Classifier     session.Classifier
	Capturer       *capture.Capturer
	Executor       *delegate.Executor
	Advisor        *advisory.Writer
	CaptureEnabled bool
	Logger         zerolog.Logger
	// ConfigErr is the error that made the runner fall back to default
	// settings. Agent sessions abort on it; human sessions pass through.
	ConfigErr error
}

// Run handles one invocation of tool and returns the process exit status.
func (r *Runner) Run(ctx context.Context, tool Tool, args []string) int {
	logger := r.Logger.With().Str("tool", tool.Name).Logger()
	inv := Invocation{
		Args:    args,
		Piped:   r.Capturer.Piped(),
		Verdict: r.Classifier.Classify(),
	}
	logger.Debug().
		Str("verdict", inv.Verdict.Kind.String()).
		Str("reason", inv.Verdict.Reason).
		Bool("piped", inv.Piped).
		Strs("args", inv.Args).
		Msg("Classified invocation")

	if r.ConfigErr != nil {
		if inv.Verdict.IsAgent() {
			return r.fail(logger, tool, r.ConfigErr)
		}
		logger.Warn().Err(r.ConfigErr).Msg("Ignoring invalid configuration")
		r.Advisor.Warning("ignoring invalid agentshim configuration", r.ConfigErr)
	}

	if !inv.Verdict.IsAgent() {
		return r.delegate(ctx, logger, tool, inv.Args, nil)
	}

	var captured string
	var input []byte
	if r.CaptureEnabled {
		path, err := r.Capturer.Capture(tool.CapturePrefix)
		if err != nil {
			return r.fail(logger, tool, err)
		}
		captured = path
	} else {
		data, err := r.Capturer.Drain()
		if err != nil {
			return r.fail(logger, tool, err)
		}
		input = data
	}

	result := tool.Policy.Rewrite(inv.Args, captured)
	for _, n := range result.Notices {
		r.Advisor.Enforced(n.Original, n.Enforced, n.Detail)
	}
	logger.Info().
		Str("captured", captured).
		Strs("args", result.Args).
		Int("notices", len(result.Notices)).
		Msg("Rewrote invocation")

	return r.delegate(ctx, logger, tool, result.Args, input)
}

func (r *Runner) delegate(ctx context.Context, logger zerolog.Logger, tool Tool, args []string, input []byte) int {
	logger.Debug().Str("command", CommandLine(tool.Binary, args)).Msg("Delegating")
	code, err := r.Executor.Run(ctx, tool.Binary, args, input)
	if err != nil {
		return r.fail(logger, tool, err)
	}
	logger.Debug().Int("exit_code", code).Msg("Delegated")
	return code
}

func (r *Runner) fail(logger zerolog.Logger, tool Tool, err error) int {
	logger.Error().Err(err).Msg("Invocation failed")
	r.Advisor.Failure(failureMessage(tool, err), err)
	return delegate.FallbackExitCode
}

// failureMessage names what went wrong from the error's code.
func failureMessage(tool Tool, err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeConfig):
		return "invalid agentshim configuration"
	case apperrors.HasCode(err, apperrors.CodeCapture):
		return "cannot save piped input"
	default:
		return tool.Name
	}
}

// CommandLine renders binary and args as a bash command that reproduces the
// call when pasted into a shell.
func CommandLine(binary string, args []string) string {
	words := make([]string, 0, len(args)+1)
	for _, word := range append([]string{binary}, args...) {
		quoted, err := syntax.Quote(word, syntax.LangBash)
		if err != nil {
			quoted = strconv.Quote(word)
		}
		words = append(words, quoted)
	}
	return strings.Join(words, " ")
}
