package tracker

import (
	"fmt"

	"github.com/saba-chan/saba-core/internal/domain"
)

// Terminate stops the OS process registered under name, then untracks it.
// force selects SIGKILL (Unix) / a forceful handle-based terminate
// (Windows) over the graceful signal. Returns ErrInstanceNotFound if name
// isn't tracked, or a wrapped ErrTerminationFailed on OS failure.
func (t *Tracker) Terminate(name string, force bool) error {
	t.mu.Lock()
	p, ok := t.processes[name]
	t.mu.Unlock()
	if !ok {
		return domain.ErrInstanceNotFound
	}

	if err := terminateOS(p.PID, force); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTerminationFailed, err)
	}

	t.Untrack(name)
	return nil
}

// KillPID terminates an OS process by PID directly, bypassing the tracker's
// name-keyed map. Used to reap a registered client's bot_pid, which the
// tracker never tracked under an instance name.
func KillPID(pid int, force bool) error {
	if err := terminateOS(pid, force); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTerminationFailed, err)
	}
	return nil
}
