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

package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Process is one entry of the process table.
type Process struct {
	PID  int
	PPID int
	Name string
}

// ProcessTable looks up processes by pid.
type ProcessTable interface {
	Lookup(pid int) (Process, error)
}

// SystemProcessTable reads the host process table.
type SystemProcessTable struct{}

// Lookup implements ProcessTable.
func (SystemProcessTable) Lookup(pid int) (Process, error) {
	return lookupProcess(pid)
}

// FindAncestor walks up from pid, at most maxDepth steps, and returns the
// first process whose name contains host (case-insensitive). The walk stops
// at init or on the first lookup error.
func FindAncestor(table ProcessTable, pid, maxDepth int, host string) (Process, bool) {
	if table == nil || host == "" {
		return Process{}, false
	}
	host = strings.ToLower(host)
	seen := make(map[int]bool, maxDepth)
	for depth := 0; depth < maxDepth && pid > 1 && !seen[pid]; depth++ {
		seen[pid] = true
		proc, err := table.Lookup(pid)
		if err != nil {
			return Process{}, false
		}
		if strings.Contains(strings.ToLower(proc.Name), host) {
			return proc, true
		}
		pid = proc.PPID
	}
	return Process{}, false
}

// parseProcStat extracts the command name and parent pid from the contents
// of /proc/<pid>/stat. The name is wrapped in parentheses and may itself
// contain spaces or parentheses, so the last ')' ends it.
func parseProcStat(data string) (string, int, error) {
	open := strings.IndexByte(data, '(')
	end := strings.LastIndexByte(data, ')')
	if open < 0 || end < open {
		return "", 0, fmt.Errorf("malformed stat line")
	}
	name := data[open+1 : end]
	fields := strings.Fields(data[end+1:])
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("malformed stat line")
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid parent pid %q", fields[1])
	}
	return name, ppid, nil
}
