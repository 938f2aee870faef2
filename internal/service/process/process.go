package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/xrp-sim/internal/logger"
)

// commLength is the executable name length Linux reports for a process.
const commLength = 15

// ErrAlreadyRunning is wrapped into a bind failure when another process runs the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// ExecutableName returns the base name of the running binary, or fallback
// with the platform extension when it cannot be determined.
func ExecutableName(fallback string) string {
	path, err := os.Executable()
	if err != nil {
		return fallback + executableExtension()
	}

	return filepath.Base(path)
}

// ExplainBindFailure returns bindErr, annotated with another process running
// the executable name when one exists. The process table only lists names, so
// it is consulted after a bind failed and never decides on its own whether to start.
func ExplainBindFailure(ctx context.Context, bindErr error, name string) error {
	processList, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Cannot list processes", "error", err)

		return bindErr
	}

	return explain(bindErr, processList, os.Getpid(), name)
}

func explain(bindErr error, processList []ps.Process, self int, name string) error {
	other, found := findOther(processList, self, name)
	if !found {
		return bindErr
	}

	return fmt.Errorf("%w (%w: %s with pid %d)", bindErr, ErrAlreadyRunning, other.Executable(), other.Pid())
}

// findOther returns the first process other than self named name.
//
//nolint:ireturn // ps.Process is the library's own type.
func findOther(processList []ps.Process, self int, name string) (ps.Process, bool) {
	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if sameExecutable(process.Executable(), name) {
			return process, true
		}
	}

	return nil, false
}

func sameExecutable(reported, name string) bool {
	if reported == name {
		return true
	}

	// Linux truncates process names.
	return len(reported) == commLength && strings.HasPrefix(name, reported)
}

// executableExtension returns ".exe" on Windows and "" elsewhere.
func executableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}
