//go:build !unix

package proc

import "os/exec"

// setGroup is a no-op; exec.CommandContext kills the direct child.
func setGroup(cmd *exec.Cmd) {}
