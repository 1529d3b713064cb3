package checksum

// Size is the number of bytes the checksum occupies when stored.
const Size = 2

// Initial is the seed of the running checksum.
const Initial uint16 = 0xFFFF

// Checksum computes the 16-bit checksum of bytes.
func Checksum(b []byte) uint16 {
	crc := Initial
	for _, v := range b {
		x := byte(crc>>8) ^ v
		x ^= x >> 4
		crc = (crc << 8) ^ uint16(x)<<12 ^ uint16(x)<<5 ^ uint16(x)
	}
	return crc
}

// Seal returns data followed by its checksum, high byte first.
func Seal(data []byte) []byte {
	crc := Checksum(data)
	sealed := make([]byte, 0, len(data)+Size)
	sealed = append(sealed, data...)
	return append(sealed, byte(crc>>8), byte(crc))
}

// Verify reports whether sealed data carries a matching checksum.
// Recomputing the checksum over data followed by its own checksum always yields zero.
func Verify(sealed []byte) bool {
	return len(sealed) >= Size && Checksum(sealed) == 0
}
