package adapter

import (
	"os/exec"
	"syscall"
)

// configureProcess hides the console window for the adapter subprocess and
// puts it in a new process group on Windows.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
