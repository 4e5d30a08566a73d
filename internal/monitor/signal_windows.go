//go:build windows

package monitor

import "os"

var syscallSIGTERM = os.Kill
