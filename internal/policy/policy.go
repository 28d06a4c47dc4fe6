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

// Package policy rewrites the argument lists of wrapped tools so that an
// agent gets enough output from a single run. Rewrites are pure: they never
// touch the input slice and report every override as a Notice.
package policy

// Notice describes one override of what the caller asked for.
type Notice struct {
	Original string
	Enforced string
	// Detail is an optional short before/after summary, e.g. "50 → 100".
	Detail string
}

// Result is a rewritten argument list.
type Result struct {
	Args    []string
	Notices []Notice
}

// Rewriter is implemented by every tool policy. captured is the path of the
// file holding piped input, or empty when there was none.
type Rewriter interface {
	Rewrite(args []string, captured string) Result
}

func appendCaptured(args []string, captured string) []string {
	if captured == "" {
		return args
	}
	return append(args, captured)
}
