// Package monitor enumerates OS processes for auto-detection of externally
// started game servers, advisory to (and combined with) the tracker.
package monitor

import (
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo is one entry returned by Enumerate.
type ProcessInfo struct {
	PID            int32
	Name           string
	ExecutablePath string
}

// Enumerate lists every OS process visible to this user. Best effort:
// processes whose name/exe can't be read (permission, already exited) are
// skipped rather than failing the whole enumeration.
func Enumerate() ([]ProcessInfo, error) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		return nil, err
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		exe, _ := p.Exe() // advisory only; commonly fails under restricted perms
		out = append(out, ProcessInfo{PID: p.Pid, Name: name, ExecutablePath: exe})
	}
	return out, nil
}

// FindByName returns every process whose name contains substr, matched
// case-insensitively.
func FindByName(substr string) ([]ProcessInfo, error) {
	all, err := Enumerate()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(substr)
	var matches []ProcessInfo
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// IsRunning reports whether pid currently identifies a live process.
func IsRunning(pid int) (bool, error) {
	return gopsprocess.PidExists(int32(pid))
}
