package journal

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/outofforest/eelog/medium"
	"github.com/outofforest/eelog/pkg/logger"
	"github.com/outofforest/eelog/slot"
)

// ErrLogFull is returned if entry is appended after the last slot has been used. Log must be erased first.
var ErrLogFull = errors.New("log is full")

// ErrNotRecovered is returned if entry is appended before the cursor has been recovered by BootScan or EraseAll.
var ErrNotRecovered = errors.New("log cursor is not recovered")

// Kind is the kind of the recovery outcome.
type Kind byte

// Recovery outcomes.
const (
	// Empty means that a free slot has been found.
	Empty Kind = iota

	// Full means that every slot contains valid entry.
	Full
)

// Outcome is the result of the boot scan.
type Outcome struct {
	Kind Kind

	// Offset is the offset of the first free slot, set if Kind is Empty.
	Offset slot.Offset
}

func (o Outcome) String() string {
	if o.Kind == Full {
		return "Full"
	}
	return fmt.Sprintf("Empty(0x%04X)", o.Offset)
}

// Entry is the valid entry read from the log.
type Entry struct {
	Payload string
	Offset  slot.Offset
}

// Journal is the append-only log stored in slots of the medium.
type Journal struct {
	ch        medium.Channel
	log       *slog.Logger
	cursor    slot.Offset
	recovered bool
}

// New returns new journal. Appending is rejected until the cursor is recovered by BootScan or EraseAll.
func New(ch medium.Channel, log *slog.Logger) *Journal {
	if log == nil {
		log = logger.Discard()
	}
	return &Journal{
		ch:  ch,
		log: log,
	}
}

// Cursor returns the offset of the next slot to write.
func (j *Journal) Cursor() slot.Offset {
	return j.cursor
}

// Recovered reports whether the cursor reflects the content of the medium.
func (j *Journal) Recovered() bool {
	return j.recovered
}

// BootScan scans slots from the beginning of the medium until the first invalid one is found.
// Entries following the invalid slot are not trusted, even if they are valid.
// Failed scan leaves the journal unrecovered.
func (j *Journal) BootScan() (Outcome, error) {
	j.recovered = false
	for offset := slot.Offset(0); ; offset += slot.SlotSize {
		_, valid, err := j.readSlot(offset)
		if err != nil {
			return Outcome{}, err
		}
		if !valid {
			j.cursor = offset
			j.recovered = true
			outcome := Outcome{Kind: Empty, Offset: offset}
			j.log.Info("boot scan finished", "outcome", outcome)
			return outcome, nil
		}
		if offset == slot.LastOffset {
			j.cursor = slot.Capacity
			j.recovered = true
			j.log.Info("boot scan finished", "outcome", Outcome{Kind: Full})
			return Outcome{Kind: Full}, nil
		}
	}
}

// Append writes entry to the slot pointed by the cursor and moves the cursor to the next slot.
// Cursor is moved even if write fails, the slot contains unspecified data then.
func (j *Journal) Append(payload string) (slot.Offset, error) {
	if !j.recovered {
		return 0, errors.WithStack(ErrNotRecovered)
	}

	offset := j.cursor
	if offset > slot.LastOffset {
		return 0, protocolViolation(offset)
	}

	encoded, err := slot.Encode(payload)
	if err != nil {
		return 0, err
	}

	err = j.ch.Write(offset, encoded)
	j.cursor += slot.SlotSize
	if err != nil {
		return 0, errors.Wrapf(err, "appending entry at 0x%04X", offset)
	}

	j.log.Debug("entry appended", "offset", offset, "payload", payload)
	return offset, nil
}

// EraseAll invalidates every slot by zeroing its first byte. Cursor is moved to the first slot only if all
// the slots have been invalidated.
func (j *Journal) EraseAll() error {
	zero := []byte{0x00}
	for i := 0; i < slot.Slots; i++ {
		offset := slot.OffsetOf(i)
		if err := j.ch.Write(offset, zero); err != nil {
			return errors.Wrapf(err, "erasing slot at 0x%04X, log is partially erased", offset)
		}
	}

	j.cursor = 0
	j.recovered = true
	j.log.Debug("log erased", "slots", slot.Slots)
	return nil
}

// Entries returns reader iterating over valid entries from the beginning of the medium.
func (j *Journal) Entries() *Reader {
	return &Reader{j: j}
}

func (j *Journal) readSlot(offset slot.Offset) (string, bool, error) {
	data, err := j.ch.Read(offset, slot.SlotSize)
	if err != nil {
		return "", false, errors.Wrapf(err, "reading slot at 0x%04X", offset)
	}
	payload, valid := slot.Decode(data)
	return payload, valid, nil
}

// Reader reads valid entries one by one. It stops at the first invalid slot.
type Reader struct {
	j      *Journal
	offset slot.Offset
	done   bool
}

// Next returns the next entry. False is returned once the first invalid slot or the end of the medium
// is reached.
func (r *Reader) Next() (Entry, bool, error) {
	if r.done || r.offset > slot.LastOffset {
		r.done = true
		return Entry{}, false, nil
	}

	payload, valid, err := r.j.readSlot(r.offset)
	if err != nil {
		r.done = true
		return Entry{}, false, err
	}
	if !valid {
		r.done = true
		return Entry{}, false, nil
	}

	entry := Entry{Payload: payload, Offset: r.offset}
	r.offset += slot.SlotSize
	return entry, true, nil
}

// All reads all the remaining entries.
func (r *Reader) All() ([]Entry, error) {
	var entries []Entry
	for {
		entry, ok, err := r.Next()
		if err != nil {
			return entries, err
		}
		if !ok {
			return entries, nil
		}
		entries = append(entries, entry)
	}
}
