package checksum

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownValues(t *testing.T) {
	assertT := assert.New(t)

	assertT.Equal(Initial, Checksum(nil))
	assertT.Equal(Initial, Checksum([]byte{}))
	assertT.Equal(uint16(0x29B1), Checksum([]byte("123456789")))
}

func TestOrderSensitive(t *testing.T) {
	assertT := assert.New(t)

	assertT.NotEqual(Checksum([]byte("ab")), Checksum([]byte("ba")))
	assertT.NotEqual(Checksum([]byte{0x00}), Checksum([]byte{0x00, 0x00}))
}

func TestSelfSealing(t *testing.T) {
	requireT := require.New(t)

	for size := 0; size <= 64; size++ {
		data := make([]byte, size)
		_, err := rand.Read(data)
		requireT.NoError(err)

		crc := Checksum(data)
		sealed := Seal(data)
		requireT.Len(sealed, size+Size)
		requireT.Equal(byte(crc>>8), sealed[size])
		requireT.Equal(byte(crc), sealed[size+1])
		requireT.Equal(uint16(0), Checksum(sealed), "size: %d", size)
		requireT.True(Verify(sealed))
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	assertT := assert.New(t)

	sealed := Seal([]byte("Boot\x00"))
	assertT.True(Verify(sealed))

	for i := range sealed {
		corrupted := append([]byte{}, sealed...)
		corrupted[i] ^= 0x01
		assertT.False(Verify(corrupted), "byte: %d", i)
	}

	assertT.False(Verify(nil))
	assertT.False(Verify([]byte{0x00}))
}

func TestSealDoesNotModifyInput(t *testing.T) {
	assertT := assert.New(t)

	data := make([]byte, 4, 16)
	copy(data, "Test")
	_ = Seal(data)
	assertT.Equal([]byte("Test"), data)
}
