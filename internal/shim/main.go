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

package shim

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"agentshim/internal/advisory"
	"agentshim/internal/capture"
	"agentshim/internal/config"
	"agentshim/internal/delegate"
	"agentshim/internal/logging"
	"agentshim/internal/session"
)

// ToolFactory builds a Tool from the loaded configuration.
type ToolFactory func(cfg *config.Config) Tool

// SearchTool is the grep shim.
func SearchTool(cfg *config.Config) Tool {
	return Tool{
		Name:          "grep",
		Binary:        cfg.Grep.Binary,
		CapturePrefix: "grep_input",
		Policy:        cfg.SearchPolicy(),
	}
}

// TailTool is the tail shim.
func TailTool(cfg *config.Config) Tool {
	return Tool{
		Name:          "tail",
		Binary:        cfg.Tail.Binary,
		CapturePrefix: "tail_input",
		Policy:        cfg.TailPolicy(),
	}
}

// Main loads configuration, builds a Runner on the process's standard
// streams and runs the tool built by factory with args. An invalid
// configuration is replaced by the defaults; the Runner then refuses agent
// sessions and passes human ones through to the default binary.
func Main(ctx context.Context, factory ToolFactory, args []string) int {
	advisor := advisory.NewWriter(os.Stderr)

	cfg, cfgErr := config.LoadConfig(config.DefaultPath())
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	logger, closer, err := logging.New(cfg.Debug, cfg.LogFile)
	if err != nil {
		advisor.Warning("cannot open log file, logging disabled", err)
		logger = zerolog.Nop()
	}
	if closer != nil {
		defer closer.Close()
	}
	if cfgErr == nil {
		for _, w := range cfg.Validate() {
			logger.Warn().Str("field", w.Field).Msg(w.Message)
		}
	}

	runner, err := NewRunner(cfg, advisor, logger)
	if err != nil {
		advisor.Failure("invalid agentshim configuration", err)
		return delegate.FallbackExitCode
	}
	runner.ConfigErr = cfgErr
	return runner.Run(ctx, factory(cfg), args)
}

// NewRunner builds a Runner for cfg on the process's standard streams.
func NewRunner(cfg *config.Config, advisor *advisory.Writer, logger zerolog.Logger) (*Runner, error) {
	classifier, err := session.New(cfg.ClassifierOptions())
	if err != nil {
		return nil, err
	}
	return &Runner{
		Classifier:     classifier,
		Capturer:       capture.New(cfg.Capture.Dir, advisor),
		Executor:       delegate.NewExecutor(logger),
		Advisor:        advisor,
		CaptureEnabled: cfg.Capture.Enabled,
		Logger:         logger,
	}, nil
}
