//go:build !unix

package exec

import (
	"os/exec"
)

func setProcGroup(*exec.Cmd) {}

func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	return cmd.Process.Kill()
}
