//go:build debug

package journal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireAppendRejected(t *testing.T, j *Journal) {
	require.Panics(t, func() {
		_, _ = j.Append("Test")
	})
}
