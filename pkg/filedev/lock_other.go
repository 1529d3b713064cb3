//go:build !unix

package filedev

import "os"

// Locking is not supported on non-unix platforms.

const lockingSupported = false

func lock(_ *os.File) error {
	return nil
}

func unlock(_ *os.File) error {
	return nil
}
