package utils

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

// ShutdownContext returns a context that is cancelled on SIGINT/SIGTERM.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// FormatAddCommas formats a number with thousands separators.
func FormatAddCommas(num uint64) string {
	s := strconv.FormatUint(num, 10)
	if len(s) <= 3 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
