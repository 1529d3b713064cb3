package medium

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/eelog/pkg/memdev"
	"github.com/outofforest/eelog/slot"
)

func TestReadWrite(t *testing.T) {
	requireT := require.New(t)

	dev := memdev.New(slot.Capacity)
	ch := newChannel(t, dev)

	requireT.NoError(ch.Write(0x40, []byte("Test")))

	p, err := ch.Read(0x40, 6)
	requireT.NoError(err)
	requireT.Equal([]byte{'T', 'e', 's', 't', 0x00, 0x00}, p)

	p, err = ch.Read(slot.LastOffset, slot.SlotSize)
	requireT.NoError(err)
	requireT.Len(p, slot.SlotSize)
}

func TestDeviceTooSmall(t *testing.T) {
	_, err := New(memdev.New(slot.Capacity - 1))
	require.Error(t, err)
}

func TestInvalidRange(t *testing.T) {
	requireT := require.New(t)

	dev := memdev.New(2 * slot.Capacity)
	ch := newChannel(t, dev)

	_, err := ch.Read(slot.LastOffset, slot.SlotSize+1)
	requireT.Error(err)
	requireT.NotErrorIs(err, ErrChannelFailure)

	requireT.Error(ch.Write(slot.Capacity, []byte{0x00}))
	requireT.Error(ch.Write(0, nil))
	requireT.Zero(dev.Writes())
	requireT.Zero(dev.Reads())
}

func TestWriteRetriesUntilSuccess(t *testing.T) {
	requireT := require.New(t)

	dev := memdev.New(slot.Capacity)
	ch := newChannel(t, dev)

	var delays []time.Duration
	ch.sleep = func(d time.Duration) { delays = append(delays, d) }

	dev.FailWrites(DefaultAttempts - 1)
	requireT.NoError(ch.Write(0, []byte("Boot")))
	requireT.Equal(DefaultAttempts, dev.Writes())
	requireT.Len(delays, DefaultAttempts-1)
	requireT.Equal(DefaultRetryDelay, delays[0])

	p, err := ch.Read(0, 4)
	requireT.NoError(err)
	requireT.Equal([]byte("Boot"), p)
}

func TestWriteGivesUp(t *testing.T) {
	requireT := require.New(t)

	dev := memdev.New(slot.Capacity)
	ch := newChannel(t, dev, WithAttempts(3), WithRetryDelay(time.Second))

	var delays int
	ch.sleep = func(time.Duration) { delays++ }

	dev.FailWrites(3)
	err := ch.Write(0, []byte("Boot"))
	requireT.ErrorIs(err, ErrChannelFailure)
	requireT.Equal(3, dev.Writes())
	requireT.Equal(2, delays)

	p, err := ch.Read(0, 4)
	requireT.NoError(err)
	requireT.Equal(make([]byte, 4), p)
}

func TestReadGivesUp(t *testing.T) {
	requireT := require.New(t)

	dev := memdev.New(slot.Capacity)
	ch := newChannel(t, dev, WithAttempts(2))
	ch.sleep = func(time.Duration) {}

	dev.FailReads(2)
	_, err := ch.Read(0, slot.SlotSize)
	requireT.ErrorIs(err, ErrChannelFailure)
	requireT.Equal(2, dev.Reads())

	_, err = ch.Read(0, slot.SlotSize)
	requireT.NoError(err)
}

func TestShortWriteIsRetried(t *testing.T) {
	requireT := require.New(t)

	dev := &shortDev{MemDev: memdev.New(slot.Capacity), short: 1}
	ch := newChannel(t, dev)
	ch.sleep = func(time.Duration) {}

	requireT.NoError(ch.Write(0, []byte("Test")))
	requireT.Zero(dev.short)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	requireT := require.New(t)

	ch := newChannel(t, memdev.New(slot.Capacity), WithAttempts(0), WithRetryDelay(-1), WithLogger(nil))
	requireT.Equal(DefaultAttempts, ch.config.Attempts)
	requireT.Equal(DefaultRetryDelay, ch.config.RetryDelay)
	requireT.NotNil(ch.config.Logger)
}

func newChannel(t *testing.T, dev Dev, opts ...Option) *DevChannel {
	ch, err := New(dev, opts...)
	require.NoError(t, err)
	return ch
}

type shortDev struct {
	*memdev.MemDev
	short int
}

func (d *shortDev) Write(p []byte) (int, error) {
	if d.short > 0 {
		d.short--
		return d.MemDev.Write(p[:len(p)-1])
	}
	return d.MemDev.Write(p)
}

var _ io.ReadWriteSeeker = &shortDev{}
