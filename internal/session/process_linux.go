//go:build linux

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
	"os"
	"strings"
)

func lookupProcess(pid int) (Process, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return Process{}, err
	}
	name, ppid, err := parseProcStat(string(data))
	if err != nil {
		return Process{}, fmt.Errorf("pid %d: %w", pid, err)
	}
	if comm, err := readProcFirstLine(fmt.Sprintf("/proc/%d/comm", pid)); err == nil && comm != "" {
		name = comm
	}
	return Process{PID: pid, PPID: ppid, Name: name}, nil
}

func readProcFirstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := strings.SplitN(string(data), "\n", 2)[0]
	return strings.TrimSpace(line), nil
}
