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
)

const defaultMinLines = 100

// TailPolicy enforces a minimum number of lines for tail.
type TailPolicy struct {
	MinLines int
}

// DefaultTailPolicy returns the tail policy defaults.
func DefaultTailPolicy() TailPolicy {
	return TailPolicy{MinLines: defaultMinLines}
}

// Rewrite implements Rewriter.
//
// Counts are recognized as "-n N" and "-N". Counts below the minimum are
// raised to it. When no count was given and no argument looks like an
// operand, "-n MIN" is prepended. A bare file name therefore suppresses the
// default: "tail app.log" keeps tail's own default of 10 lines.
func (p TailPolicy) Rewrite(args []string, captured string) Result {
	minLines := p.MinLines
	if minLines <= 0 {
		minLines = defaultMinLines
	}
	minStr := strconv.Itoa(minLines)

	out := make([]string, 0, len(args)+3)
	var notices []Notice
	explicit := false

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-n":
			out = append(out, arg)
			if i+1 >= len(args) {
				// tail will report the missing value itself.
				explicit = true
				continue
			}
			i++
			value := args[i]
			n, ok := parseLineCount(value)
			if !ok {
				out = append(out, value)
				continue
			}
			explicit = true
			if n < minLines {
				notices = append(notices, Notice{
					Original: fmt.Sprintf("tail -n %s", value),
					Enforced: fmt.Sprintf("tail -n %d", minLines),
					Detail:   fmt.Sprintf("%s → %d", value, minLines),
				})
				out = append(out, minStr)
				continue
			}
			out = append(out, value)
		case isDashCount(arg):
			n, ok := parseLineCount(arg[1:])
			if !ok {
				out = append(out, arg)
				continue
			}
			explicit = true
			if n < minLines {
				notices = append(notices, Notice{
					Original: fmt.Sprintf("tail %s", arg),
					Enforced: fmt.Sprintf("tail -%d", minLines),
					Detail:   fmt.Sprintf("%s → %d", arg[1:], minLines),
				})
				out = append(out, "-"+minStr)
				continue
			}
			out = append(out, arg)
		default:
			out = append(out, arg)
		}
	}

	if !explicit && !hasOperand(out) {
		notices = append(notices, Notice{
			Original: "tail",
			Enforced: fmt.Sprintf("tail -n %d", minLines),
		})
		out = append([]string{"-n", minStr}, out...)
	}

	return Result{Args: appendCaptured(out, captured), Notices: notices}
}

// parseLineCount accepts a plain base-10 integer. "+N" means "start at line
// N" to tail and is not a count.
func parseLineCount(value string) (int, bool) {
	if value == "" || value[0] == '+' {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isDashCount matches the obsolete "-N" form: a dash followed only by digits.
func isDashCount(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	for _, r := range arg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasOperand(args []string) bool {
	for _, arg := range args {
		if len(arg) == 0 || arg[0] != '-' {
			return true
		}
	}
	return false
}
