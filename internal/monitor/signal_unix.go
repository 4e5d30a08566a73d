//go:build !windows

package monitor

import "syscall"

const syscallSIGTERM = syscall.SIGTERM
