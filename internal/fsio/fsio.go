package fsio

import (
	"os"
)

// Hooks for filesystem operations
var (
	Open           = os.Open
	ReadFile       = os.ReadFile
	WriteFile      = os.WriteFile
	StatFile       = os.Stat
	LstatFile      = os.Lstat
	ReadDir        = os.ReadDir
	Remove         = os.Remove
	RemoveAll      = os.RemoveAll
	Rename         = os.Rename
	CreateTempFile = os.CreateTemp
	MkdirAll       = os.MkdirAll
	Mkdir          = os.Mkdir
	Link           = os.Link
	Symlink        = os.Symlink
	Readlink       = os.Readlink
	Chmod          = os.Chmod
	Chtimes        = os.Chtimes
)

// CreateExclusive creates a file that must not already exist.
// It is the primitive behind the per-destination run lock.
var CreateExclusive = func(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var Exists = func(path string) bool {
	_, err := LstatFile(path)
	return err == nil
}

var IsDir = func(path string) bool {
	fi, err := StatFile(path)
	return err == nil && fi.IsDir()
}
