//go:build !debug

package journal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireAppendRejected(t *testing.T, j *Journal) {
	_, err := j.Append("Test")
	require.ErrorIs(t, err, ErrLogFull)
}
