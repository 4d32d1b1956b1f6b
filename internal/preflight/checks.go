package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess reports whether kodarr can keep state in path: the
// directory must exist, be traversable, and accept a new file.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(format string, args ...any) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, fmt.Sprintf(format, args...))}
	}
	if path == "" {
		return Result{Name: name, Detail: "(error: not configured)"}
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: %v", err)
	case !info.IsDir():
		return fail("is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return fail("not readable: %v", err)
	}

	probe, err := os.CreateTemp(path, ".kodarr-probe-*")
	if err != nil {
		return fail("not writable: %v", err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}
