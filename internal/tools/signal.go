//go:build !windows

package tools

import "syscall"

// cancelSignal is sent to a running external tool when its context is
// cancelled; exec.Cmd.WaitDelay then escalates to SIGKILL if the process
// hasn't exited within the grace period (§5: "killed with SIGTERM, then
// SIGKILL after a grace period").
var cancelSignal = syscall.SIGTERM
