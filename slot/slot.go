package slot

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"github.com/outofforest/eelog/checksum"
)

const (
	// Capacity is the total byte size of the medium.
	Capacity = 2048

	// SlotSize is the size of the slot holding at most one entry.
	SlotSize = 64

	// Slots is the number of slots on the medium.
	Slots = Capacity / SlotSize

	// LastOffset is the offset of the last slot.
	LastOffset Offset = Capacity - SlotSize

	// CRCIndexLimit is the exclusive upper bound of the terminator index. The terminator must leave room for
	// the checksum inside the slot.
	CRCIndexLimit = SlotSize - checksum.Size

	// MaxPayload is the longest payload accepted by Encode.
	MaxPayload = SlotSize - 1 - checksum.Size - 1

	terminator = 0x00
)

// Offset is the byte offset on the medium.
type Offset uint32

// OffsetOf returns offset of the slot with index i.
func OffsetOf(i int) Offset {
	return Offset(i * SlotSize)
}

// Index returns the index of the slot starting at offset.
func (o Offset) Index() int {
	return int(o / SlotSize)
}

// Aligned reports whether offset is the start of a slot inside the medium.
func (o Offset) Aligned() bool {
	return o%SlotSize == 0 && o <= LastOffset
}

// Errors returned by Encode.
var (
	ErrEmptyPayload   = errors.New("payload is empty")
	ErrPayloadTooLong = errors.New("payload does not fit into the slot")
	ErrPayloadHasNUL  = errors.New("payload contains terminator byte")
)

// Encode returns the bytes representing payload in the slot: the payload, the terminator and the checksum
// of both, high byte first. Slot bytes following the checksum are not part of the result, they are left as
// they are on the medium.
func Encode(payload string) ([]byte, error) {
	switch {
	case payload == "":
		return nil, errors.WithStack(ErrEmptyPayload)
	case len(payload) > MaxPayload:
		return nil, errors.Wrapf(ErrPayloadTooLong, "length: %d, max: %d", len(payload), MaxPayload)
	case strings.IndexByte(payload, terminator) >= 0:
		return nil, errors.WithStack(ErrPayloadHasNUL)
	}

	data := make([]byte, 0, len(payload)+1)
	data = append(data, payload...)
	data = append(data, terminator)
	return checksum.Seal(data), nil
}

// Decode returns the payload stored in the slot. False is returned if slot does not contain valid entry.
func Decode(slot []byte) (string, bool) {
	if len(slot) != SlotSize || slot[0] == terminator {
		return "", false
	}

	end := bytes.IndexByte(slot[:CRCIndexLimit], terminator)
	if end < 0 {
		return "", false
	}
	if !checksum.Verify(slot[:end+1+checksum.Size]) {
		return "", false
	}
	return string(slot[:end]), true
}
