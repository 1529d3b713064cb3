package memdev

import (
	"io"

	"github.com/pkg/errors"
)

var (
	_ io.Seeker = &MemDev{}
	_ io.Reader = &MemDev{}
	_ io.Writer = &MemDev{}
)

// ErrInjected is returned by operations failed on purpose by FailReads and FailWrites.
var ErrInjected = errors.New("injected device failure")

// MemDev simulates device io operations in memory.
type MemDev struct {
	size   int64
	offset int64
	data   []byte

	failReads  int
	failWrites int
	reads      int
	writes     int
}

// New returns new memdev.
func New(size int64) *MemDev {
	return &MemDev{
		size: size,
		data: make([]byte, size),
	}
}

// FailReads causes the next n reads to fail.
func (md *MemDev) FailReads(n int) {
	md.failReads = n
}

// FailWrites causes the next n writes to fail without modifying the data.
func (md *MemDev) FailWrites(n int) {
	md.failWrites = n
}

// Reads returns the number of read calls received, including the failed ones.
func (md *MemDev) Reads() int {
	return md.reads
}

// Writes returns the number of write calls received, including the failed ones.
func (md *MemDev) Writes() int {
	return md.writes
}

// Seek seeks the position.
func (md *MemDev) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = md.offset + offset
	case io.SeekEnd:
		offset = md.size + offset
	}

	if offset < 0 || offset > md.size {
		return 0, errors.Errorf("invalid offset: %d", offset)
	}

	md.offset = offset
	return offset, nil
}

// Read reads data from the memdev.
func (md *MemDev) Read(p []byte) (int, error) {
	md.reads++
	if md.failReads > 0 {
		md.failReads--
		return 0, errors.WithStack(ErrInjected)
	}
	if p == nil {
		return 0, nil
	}
	n := copy(p, md.data[md.offset:])
	md.offset += int64(n)
	return n, nil
}

// Write writes data to the memdev.
func (md *MemDev) Write(p []byte) (int, error) {
	md.writes++
	if md.failWrites > 0 {
		md.failWrites--
		return 0, errors.WithStack(ErrInjected)
	}
	if p == nil {
		return 0, nil
	}
	n := copy(md.data[md.offset:], p)
	md.offset += int64(n)
	return n, nil
}

// Sync does nothing, memory is always in sync.
func (md *MemDev) Sync() error {
	return nil
}

// Size returns the byte size of the memdev.
func (md *MemDev) Size() int64 {
	return md.size
}
