package filedev

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var _ io.ReadWriteSeeker = &FileDev{}

// ErrLocked is returned if the image is already opened by another process.
var ErrLocked = errors.New("device image is used by another process")

// FileDev uses file handle as a device.
type FileDev struct {
	file *os.File
	size int64
}

// Open opens the device image stored in file under path. If file does not exist it is created. If it is smaller
// than size, it is extended with zeros, so fresh image behaves like an empty medium.
// The file is locked exclusively until the device is closed.
func Open(path string, size int64) (*FileDev, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	fd, err := newFileDev(file, size)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return fd, nil
}

func newFileDev(file *os.File, size int64) (*FileDev, error) {
	if err := lock(file); err != nil {
		return nil, err
	}

	current, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if current < size {
		if err := file.Truncate(size); err != nil {
			return nil, errors.WithStack(err)
		}
		current = size
	}

	return &FileDev{
		file: file,
		size: current,
	}, nil
}

// Seek seeks the position.
func (fd *FileDev) Seek(offset int64, whence int) (int64, error) {
	n, err := fd.file.Seek(offset, whence)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Read reads data from the file.
func (fd *FileDev) Read(p []byte) (int, error) {
	n, err := fd.file.Read(p)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Write writes data to the file.
func (fd *FileDev) Write(p []byte) (int, error) {
	n, err := fd.file.Write(p)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Sync syncs data to the file.
func (fd *FileDev) Sync() error {
	if err := fd.file.Sync(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Size returns the byte size of the file.
func (fd *FileDev) Size() int64 {
	return fd.size
}

// Close releases the lock and closes the file.
func (fd *FileDev) Close() error {
	unlockErr := unlock(fd.file)
	if err := fd.file.Close(); err != nil {
		return errors.WithStack(err)
	}
	return unlockErr
}
