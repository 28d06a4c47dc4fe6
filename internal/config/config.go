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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"agentshim/internal/capture"
	apperrors "agentshim/internal/errors"
	"agentshim/internal/paths"
	"agentshim/internal/policy"
	"agentshim/internal/session"
)

// Environment variables read by LoadConfig and DefaultPath.
const (
	EnvConfigPath = "AGENTSHIM_CONFIG"
	EnvLogFile    = "AGENTSHIM_LOG_FILE"
	EnvDebug      = "AGENTSHIM_DEBUG"
	EnvCaptureDir = "AGENTSHIM_CAPTURE_DIR"
	EnvDetection  = "AGENTSHIM_DETECTION"
)

const (
	DefaultGrepBinary = "/usr/bin/grep"
	DefaultTailBinary = "/usr/bin/tail"

	maxAncestryDepthLimit = 64
)

// Config represents the shim configuration
type Config struct {
	Detection        string          `json:"detection"`
	AgentEnv         AgentEnv        `json:"agent_env"`
	HostApp          string          `json:"host_app,omitempty"`
	MaxAncestryDepth int             `json:"max_ancestry_depth,omitempty"`
	Capture          CaptureSettings `json:"capture"`
	Grep             GrepSettings    `json:"grep"`
	Tail             TailSettings    `json:"tail"`
	LogFile          string          `json:"log_file,omitempty"`
	Debug            bool            `json:"debug,omitempty"`
}

// AgentEnv names the environment variable that marks an agent session.
type AgentEnv struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CaptureSettings controls where piped input is saved.
type CaptureSettings struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// GrepSettings configures the search shim.
type GrepSettings struct {
	Binary       string   `json:"binary"`
	ContextLines int      `json:"context_lines"`
	ExtraArgs    []string `json:"extra_args"`
	ExcludeDirs  []string `json:"exclude_dirs"`
}

// TailSettings configures the tail shim.
type TailSettings struct {
	Binary   string `json:"binary"`
	MinLines int    `json:"min_lines"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	search := policy.DefaultSearchPolicy()
	return &Config{
		Detection: session.ModeStrict,
		AgentEnv: AgentEnv{
			Name:  session.DefaultMarkerName,
			Value: session.DefaultMarkerValue,
		},
		HostApp:          session.DefaultHostApp,
		MaxAncestryDepth: session.DefaultMaxDepth,
		Capture: CaptureSettings{
			Enabled: true,
			Dir:     capture.DefaultDir,
		},
		Grep: GrepSettings{
			Binary:       DefaultGrepBinary,
			ContextLines: search.ContextLines,
			ExtraArgs:    search.ExtraArgs,
			ExcludeDirs:  search.ExcludeDirs,
		},
		Tail: TailSettings{
			Binary:   DefaultTailBinary,
			MinLines: policy.DefaultTailPolicy().MinLines,
		},
	}
}

// DefaultPath returns $AGENTSHIM_CONFIG, or config.json under the user
// config directory. It returns "" when neither can be determined.
func DefaultPath() string {
	if val := os.Getenv(EnvConfigPath); val != "" {
		return val
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "agentshim", "config.json")
}

// LoadConfig loads configuration from a JSON file, applies env overrides, and
// validates the fields the shims cannot run without. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, apperrors.Wrap(apperrors.CodeConfig, "read "+path, err)
		default:
			normalized, err := normalizeConfigJSON(data)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeConfig, "parse "+path, err)
			}
			if err := json.Unmarshal(normalized, config); err != nil {
				return nil, apperrors.Wrap(apperrors.CodeConfig, "parse "+path, err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	// Set defaults for any missing values
	if config.Detection == "" {
		config.Detection = session.ModeStrict
	}
	if config.AgentEnv.Name == "" {
		config.AgentEnv = AgentEnv{Name: session.DefaultMarkerName, Value: session.DefaultMarkerValue}
	}
	if config.Capture.Dir == "" {
		config.Capture.Dir = capture.DefaultDir
	}
	if config.Grep.Binary == "" {
		config.Grep.Binary = DefaultGrepBinary
	}
	if config.Tail.Binary == "" {
		config.Tail.Binary = DefaultTailBinary
	}

	// Validation
	if config.Detection != session.ModeStrict && config.Detection != session.ModeHeuristic {
		return nil, apperrors.New(apperrors.CodeConfig,
			fmt.Sprintf("detection must be %q or %q, got %q", session.ModeStrict, session.ModeHeuristic, config.Detection))
	}
	for field, binary := range map[string]string{"grep.binary": config.Grep.Binary, "tail.binary": config.Tail.Binary} {
		if err := paths.ValidateAbsolute(binary); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, field, err)
		}
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	if val := os.Getenv(EnvLogFile); val != "" {
		c.LogFile = val
	}
	if val := os.Getenv(EnvCaptureDir); val != "" {
		c.Capture.Dir = val
	}
	if val := os.Getenv(EnvDetection); val != "" {
		c.Detection = val
	}
	if val := os.Getenv(EnvDebug); val != "" {
		debug, err := strconv.ParseBool(val)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeConfig, EnvDebug, err)
		}
		c.Debug = debug
	}
	return nil
}

// ClassifierOptions converts config settings into session classifier options.
func (c *Config) ClassifierOptions() session.Options {
	return session.Options{
		Mode:     c.Detection,
		Marker:   session.Marker{Name: c.AgentEnv.Name, Value: c.AgentEnv.Value},
		HostApp:  c.HostApp,
		MaxDepth: c.maxAncestryDepth(),
	}
}

// SearchPolicy returns the grep rewrite rules.
func (c *Config) SearchPolicy() policy.SearchPolicy {
	p := policy.DefaultSearchPolicy()
	if c.Grep.ContextLines > 0 {
		p.ContextLines = c.Grep.ContextLines
	}
	if c.Grep.ExtraArgs != nil {
		p.ExtraArgs = append([]string{}, c.Grep.ExtraArgs...)
	}
	if c.Grep.ExcludeDirs != nil {
		p.ExcludeDirs = append([]string{}, c.Grep.ExcludeDirs...)
	}
	return p
}

// TailPolicy returns the tail rewrite rules.
func (c *Config) TailPolicy() policy.TailPolicy {
	p := policy.DefaultTailPolicy()
	if c.Tail.MinLines > 0 {
		p.MinLines = c.Tail.MinLines
	}
	return p
}

func (c *Config) maxAncestryDepth() int {
	if c.MaxAncestryDepth <= 0 || c.MaxAncestryDepth > maxAncestryDepthLimit {
		return session.DefaultMaxDepth
	}
	return c.MaxAncestryDepth
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings
func (c *Config) Validate() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Grep.ContextLines <= 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "grep.context_lines",
			Message: fmt.Sprintf("context_lines %d should be positive, using default", c.Grep.ContextLines),
		})
	}
	if c.Tail.MinLines <= 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "tail.min_lines",
			Message: fmt.Sprintf("min_lines %d should be positive, using default", c.Tail.MinLines),
		})
	}
	if c.MaxAncestryDepth <= 0 || c.MaxAncestryDepth > maxAncestryDepthLimit {
		warnings = append(warnings, ValidationWarning{
			Field:   "max_ancestry_depth",
			Message: fmt.Sprintf("max_ancestry_depth %d is outside [1, %d], using default", c.MaxAncestryDepth, maxAncestryDepthLimit),
		})
	}
	if c.Detection == session.ModeHeuristic {
		warnings = append(warnings, ValidationWarning{
			Field:   "detection",
			Message: "heuristic detection also matches terminals opened by hand inside the editor",
		})
	}
	if c.Capture.Enabled && !filepath.IsAbs(c.Capture.Dir) {
		warnings = append(warnings, ValidationWarning{
			Field:   "capture.dir",
			Message: fmt.Sprintf("capture dir %q is relative to the working directory", c.Capture.Dir),
		})
	}
	for i, dir := range c.Grep.ExcludeDirs {
		if dir == "" {
			warnings = append(warnings, ValidationWarning{
				Field:   fmt.Sprintf("grep.exclude_dirs[%d]", i),
				Message: "empty directory name is ignored by grep",
			})
		}
	}
	for field, binary := range map[string]string{"grep.binary": c.Grep.Binary, "tail.binary": c.Tail.Binary} {
		if _, err := os.Stat(binary); err != nil {
			warnings = append(warnings, ValidationWarning{
				Field:   field,
				Message: fmt.Sprintf("%s is not available: %v", binary, err),
			})
		}
	}

	return warnings
}
