package image

import "sync"

var (
	crc32TableOnce sync.Once
	crc32Table     [256]uint32
)

func buildCRC32Table() {
	for i := 0; i < 256; i++ {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = (c << 1) ^ 0x04c11db7
			} else {
				c = c << 1
			}
		}
		crc32Table[i] = c
	}
}

// CalculateChecksum computes the GDB-compatible CRC-32 of buf: poly
// 0x04c11db7, seeded with 0xffffffff, MSB-first, no final XOR. This is
// not the ZIP/PKZIP CRC-32 used elsewhere in this module's CLI tooling
// (see pkg/util/crc32.go) — that one uses the bit-reversed form of the
// same polynomial (0xEDB88320) seeded with 0, so the two differ in bit
// order and initial value and are not interchangeable.
//
// keepAlive is invoked once per 32768-byte chunk so a long-running host
// can service its own event loop; shutdown is polled at the same
// cadence and, if it ever reports true, the calculation aborts with a
// KindInterrupted error.
func CalculateChecksum(buf []byte, keepAlive KeepAliveFunc, shutdown ShutdownFunc) (uint32, error) {
	return CalculateChecksumChunked(buf, 32768, keepAlive, shutdown)
}

// CalculateChecksumChunked is CalculateChecksum with a caller-chosen
// keepAlive/shutdown polling interval, in bytes, instead of the default
// 32768. chunkSize <= 0 falls back to the default.
func CalculateChecksumChunked(buf []byte, chunkSize int, keepAlive KeepAliveFunc, shutdown ShutdownFunc) (uint32, error) {
	crc32TableOnce.Do(buildCRC32Table)

	if chunkSize <= 0 {
		chunkSize = 32768
	}

	var crc uint32 = 0xffffffff
	remaining := buf

	for len(remaining) > 0 {
		run := len(remaining)
		if run > chunkSize {
			run = chunkSize
		}
		chunk := remaining[:run]
		remaining = remaining[run:]

		for _, b := range chunk {
			crc = (crc << 8) ^ crc32Table[((crc>>24)^uint32(b))&0xFF]
		}

		if keepAlive != nil {
			keepAlive()
		}
		if shutdown != nil && shutdown() {
			return 0, &Error{Kind: KindInterrupted, Msg: "checksum calculation interrupted by shutdown"}
		}
	}

	return crc, nil
}
