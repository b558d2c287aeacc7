// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v4/process"
)

// Session is a candidate capture target: a running process that may
// own an audio session. Audible is best-effort — only platforms whose
// capture transport exposes session activity can set it; the default
// lister leaves it false.
type Session struct {
	PID     int32
	Name    string
	Audible bool
}

// ListSessions enumerates running processes as capture candidates,
// sorted by name. The UI layer polls this to populate its source
// picker; the core only ever consumes a chosen Handle.
func ListSessions() ([]Session, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	sessions := make([]Session, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue // already-gone or inaccessible process
		}
		sessions = append(sessions, Session{PID: p.Pid, Name: name})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Name == sessions[j].Name {
			return sessions[i].PID < sessions[j].PID
		}
		return sessions[i].Name < sessions[j].Name
	})
	return sessions, nil
}

// PrintSessions lists capture candidates on stdout, one per line, in
// the format the --pid flag expects.
func PrintSessions() error {
	sessions, err := ListSessions()
	if err != nil {
		return err
	}

	fmt.Printf("\nCapture candidates\n\n")
	for _, s := range sessions {
		fmt.Printf("[%6d] %s\n", s.PID, s.Name)
	}
	return nil
}
