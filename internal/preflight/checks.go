package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess passes when path is a directory the process can list,
// create files in and traverse.
func CheckDirectoryAccess(name, path string) Result {
	info, fail := inspect(name, path)
	if fail != nil {
		return *fail
	}
	if !info.IsDir() {
		return failure(name, path, "not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return failure(name, path, "permission denied: "+err.Error())
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckFileReadable passes when path is a non-empty regular file the process
// can read.
func CheckFileReadable(name, path string) Result {
	info, fail := inspect(name, path)
	if fail != nil {
		return *fail
	}
	switch {
	case !info.Mode().IsRegular():
		return failure(name, path, "not a regular file")
	case info.Size() == 0:
		return failure(name, path, "empty")
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return failure(name, path, "not readable: "+err.Error())
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

func inspect(name, path string) (fs.FileInfo, *Result) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, fs.ErrNotExist):
		r := failure(name, path, "does not exist")
		return nil, &r
	default:
		r := failure(name, path, "stat: "+err.Error())
		return nil, &r
	}
}

func failure(name, path, reason string) Result {
	return Result{Name: name, Detail: path + ": " + reason}
}
