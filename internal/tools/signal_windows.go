//go:build windows

package tools

import "os"

// Windows has no SIGTERM; Cancel just kills the process directly.
var cancelSignal = os.Kill
