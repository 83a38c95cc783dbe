package ffmpeg

import (
	"fmt"
	"strings"
)

// ProbeError reports that a file could not be read or is not usable media
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// ExecutionError reports a non-zero ffmpeg exit. Diagnostics holds the
// engine's log output verbatim.
type ExecutionError struct {
	ExitCode    int
	Diagnostics string
	Err         error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	if last := lastLine(e.Diagnostics); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
