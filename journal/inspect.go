package journal

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/outofforest/eelog/slot"
)

// SlotState describes the content of the slot found by Inspect.
type SlotState struct {
	Offset  slot.Offset
	Valid   bool
	Payload string

	// Trusted is true if the slot is reachable by BootScan and Entries, meaning that no invalid slot precedes it.
	Trusted bool
}

// Report is the result of Inspect.
type Report struct {
	Slots []SlotState

	// Fingerprint is the xxhash of the whole medium image.
	Fingerprint uint64
}

// Orphans returns valid slots which are ignored because an invalid slot precedes them.
func (r Report) Orphans() []SlotState {
	var orphans []SlotState
	for _, s := range r.Slots {
		if s.Valid && !s.Trusted {
			orphans = append(orphans, s)
		}
	}
	return orphans
}

// Inspect decodes every slot of the medium, including the ones following the first invalid slot.
// It doesn't modify the cursor.
func (j *Journal) Inspect() (Report, error) {
	image, err := j.ch.Read(0, slot.Capacity)
	if err != nil {
		return Report{}, errors.Wrap(err, "reading medium image")
	}

	report := Report{
		Slots:       make([]SlotState, 0, slot.Slots),
		Fingerprint: xxhash.Sum64(image),
	}
	trusted := true
	for i := 0; i < slot.Slots; i++ {
		offset := slot.OffsetOf(i)
		payload, valid := slot.Decode(image[offset : offset+slot.SlotSize])
		trusted = trusted && valid
		report.Slots = append(report.Slots, SlotState{
			Offset:  offset,
			Valid:   valid,
			Payload: payload,
			Trusted: trusted,
		})
	}
	return report, nil
}
