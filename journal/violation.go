//go:build !debug

package journal

import (
	"github.com/pkg/errors"

	"github.com/outofforest/eelog/slot"
)

func protocolViolation(cursor slot.Offset) error {
	return errors.Wrapf(ErrLogFull, "cursor: 0x%04X", cursor)
}
