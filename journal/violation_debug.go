//go:build debug

package journal

import (
	"github.com/pkg/errors"

	"github.com/outofforest/eelog/slot"
)

func protocolViolation(cursor slot.Offset) error {
	panic(errors.Wrapf(ErrLogFull, "append without erase, cursor: 0x%04X", cursor))
}
