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

// Package session decides whether the current invocation was issued by an AI
// agent or typed by a human. Everything it reads (environment, process table)
// is injected so callers can classify once and pass the verdict along.
package session

import (
	"fmt"
	"os"
	"strings"

	apperrors "agentshim/internal/errors"
)

// Kind is the classification of an invocation.
type Kind int

const (
	Interactive Kind = iota
	Agent
)

func (k Kind) String() string {
	switch k {
	case Agent:
		return "agent"
	default:
		return "interactive"
	}
}

// Verdict is the outcome of a classification together with the signal that
// decided it.
type Verdict struct {
	Kind   Kind
	Reason string
}

// IsAgent reports whether the invocation should have policies applied.
func (v Verdict) IsAgent() bool {
	return v.Kind == Agent
}

// Classifier produces a verdict from ambient state captured at construction.
type Classifier interface {
	Classify() Verdict
}

// LookupEnv has the signature of os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Detection modes.
const (
	ModeStrict    = "strict"
	ModeHeuristic = "heuristic"
)

const (
	// DefaultMarkerName is set by the agent runtime on every command it spawns.
	DefaultMarkerName  = "CURSOR_AGENT"
	DefaultMarkerValue = "1"
	DefaultHostApp     = "cursor"
	DefaultMaxDepth    = 10

	// Also present in terminals the user opens by hand inside the editor.
	TraceIDEnv = "CURSOR_TRACE_ID"
	IPCHookEnv = "VSCODE_IPC_HOOK_CLI"
)

// Marker is an environment variable whose exact value identifies an agent.
type Marker struct {
	Name  string
	Value string
}

// DefaultMarker returns the agent identity marker.
func DefaultMarker() Marker {
	return Marker{Name: DefaultMarkerName, Value: DefaultMarkerValue}
}

func (m Marker) matches(lookup LookupEnv) bool {
	if m.Name == "" || lookup == nil {
		return false
	}
	value, ok := lookup(m.Name)
	return ok && value == m.Value
}

func (m Marker) String() string {
	return m.Name + "=" + m.Value
}

// StrictClassifier trusts only the agent identity marker. Editor terminal
// variables are shared with manual sessions and are ignored.
type StrictClassifier struct {
	Marker    Marker
	LookupEnv LookupEnv
}

// Classify implements Classifier.
func (c StrictClassifier) Classify() Verdict {
	if c.Marker.matches(c.LookupEnv) {
		return Verdict{Kind: Agent, Reason: c.Marker.String()}
	}
	return Verdict{Kind: Interactive, Reason: "agent marker absent"}
}

// HeuristicClassifier accepts the marker or any weaker editor signal: the
// trace id variable, an IPC hook path naming the host application, or an
// ancestor process named after it. It also fires for terminals a human opened
// inside the editor.
type HeuristicClassifier struct {
	Marker    Marker
	HostApp   string
	MaxDepth  int
	LookupEnv LookupEnv
	Processes ProcessTable
	// PID is where the ancestry walk starts, normally the shim's parent.
	PID int
}

// Classify implements Classifier.
func (c HeuristicClassifier) Classify() Verdict {
	if c.Marker.matches(c.LookupEnv) {
		return Verdict{Kind: Agent, Reason: c.Marker.String()}
	}
	host := strings.ToLower(c.HostApp)
	if c.LookupEnv != nil {
		if value, ok := c.LookupEnv(TraceIDEnv); ok && value != "" {
			return Verdict{Kind: Agent, Reason: TraceIDEnv + " set"}
		}
		if value, ok := c.LookupEnv(IPCHookEnv); ok && host != "" && strings.Contains(strings.ToLower(value), host) {
			return Verdict{Kind: Agent, Reason: IPCHookEnv + " names " + c.HostApp}
		}
	}
	if proc, ok := FindAncestor(c.Processes, c.PID, c.MaxDepth, host); ok {
		return Verdict{Kind: Agent, Reason: fmt.Sprintf("ancestor %s (pid %d)", proc.Name, proc.PID)}
	}
	return Verdict{Kind: Interactive, Reason: "no agent signal"}
}

// Options configures New.
type Options struct {
	Mode      string
	Marker    Marker
	HostApp   string
	MaxDepth  int
	LookupEnv LookupEnv
	Processes ProcessTable
	PID       int
}

// New builds the classifier for opts.Mode. Zero values fall back to the
// process environment, the system process table and the parent pid.
func New(opts Options) (Classifier, error) {
	if opts.Marker.Name == "" {
		opts.Marker = DefaultMarker()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	switch opts.Mode {
	case "", ModeStrict:
		return StrictClassifier{Marker: opts.Marker, LookupEnv: opts.LookupEnv}, nil
	case ModeHeuristic:
		if opts.HostApp == "" {
			opts.HostApp = DefaultHostApp
		}
		if opts.MaxDepth <= 0 {
			opts.MaxDepth = DefaultMaxDepth
		}
		if opts.Processes == nil {
			opts.Processes = SystemProcessTable{}
		}
		if opts.PID <= 0 {
			opts.PID = os.Getppid()
		}
		return HeuristicClassifier{
			Marker:    opts.Marker,
			HostApp:   opts.HostApp,
			MaxDepth:  opts.MaxDepth,
			LookupEnv: opts.LookupEnv,
			Processes: opts.Processes,
			PID:       opts.PID,
		}, nil
	default:
		return nil, apperrors.New(apperrors.CodeClassify, fmt.Sprintf("unknown detection mode %q (want %s or %s)", opts.Mode, ModeStrict, ModeHeuristic))
	}
}
