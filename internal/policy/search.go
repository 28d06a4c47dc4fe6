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

package policy

import (
	"fmt"
	"strconv"
	"strings"
)

const defaultContextLines = 20

// contextFlagPrefixes covers the short and long forms of grep's context
// options, with or without an attached value.
var contextFlagPrefixes = []string{
	"-A", "-B", "-C",
	"--context", "--after-context", "--before-context",
}

// DefaultExcludeDirs lists version control and tooling directories that are
// never worth searching.
var DefaultExcludeDirs = []string{".bzr", "CVS", ".git", ".hg", ".svn", ".idea", ".tox", ".venv", "venv"}

// DefaultExtraArgs are passed to grep ahead of everything else.
var DefaultExtraArgs = []string{"--color=auto"}

// SearchPolicy guarantees grep prints context around every match.
type SearchPolicy struct {
	ContextLines int
	ExtraArgs    []string
	ExcludeDirs  []string
}

// DefaultSearchPolicy returns the search policy defaults.
func DefaultSearchPolicy() SearchPolicy {
	return SearchPolicy{
		ContextLines: defaultContextLines,
		ExtraArgs:    append([]string{}, DefaultExtraArgs...),
		ExcludeDirs:  append([]string{}, DefaultExcludeDirs...),
	}
}

// HasContextFlag reports whether args already ask for context lines.
func HasContextFlag(args []string) bool {
	for _, arg := range args {
		for _, prefix := range contextFlagPrefixes {
			if strings.HasPrefix(arg, prefix) {
				return true
			}
		}
	}
	return false
}

// Rewrite implements Rewriter. The result is
// extras, exclusions, [-C N], user args, [captured].
func (p SearchPolicy) Rewrite(args []string, captured string) Result {
	lines := p.ContextLines
	if lines <= 0 {
		lines = defaultContextLines
	}

	out := make([]string, 0, len(p.ExtraArgs)+len(p.ExcludeDirs)+len(args)+3)
	out = append(out, p.ExtraArgs...)
	for _, dir := range p.ExcludeDirs {
		out = append(out, "--exclude-dir="+dir)
	}

	var notices []Notice
	if !HasContextFlag(args) {
		count := strconv.Itoa(lines)
		notices = append(notices, Notice{
			Original: "grep",
			Enforced: fmt.Sprintf("grep -C %s", count),
		})
		out = append(out, "-C", count)
	}
	out = append(out, args...)

	return Result{Args: appendCaptured(out, captured), Notices: notices}
}
