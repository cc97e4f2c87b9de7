package image

import "strings"

// srecordBacking mirrors ihexBacking: one owned buffer, offsets indexed
// by section.
type srecordBacking struct {
	src     FileSource
	buf     []byte
	offsets []uint32
}

func (b *srecordBacking) readSection(sec int, offset, length uint32, out []byte) (int, error) {
	start := b.offsets[sec] + offset
	copy(out, b.buf[start:start+length])
	return int(length), nil
}

func (b *srecordBacking) close() error {
	var err error
	if b.src != nil {
		err = b.src.Close()
	}
	b.buf = nil
	b.offsets = nil
	return err
}

type srecState struct {
	sections []Section
	offsets  []uint32
	buf      []byte

	current      Section
	currentStart uint32
	fullAddress  uint32

	startAddress uint64
	startSet     bool

	sawTerminator bool
}

func (s *srecState) closeCurrentSection() error {
	if len(s.sections) >= MaxSections {
		return formatErrorf("too many sections found in S-record file")
	}
	s.sections = append(s.sections, s.current)
	s.offsets = append(s.offsets, s.currentStart)
	s.current = Section{}
	s.currentStart = uint32(len(s.buf))
	return nil
}

// addressBytesForType returns the number of address bytes a data record
// type carries (2 for S1, 3 for S2, 4 for S3).
func addressBytesForType(t byte) (int, bool) {
	switch t {
	case '1':
		return 2, true
	case '2':
		return 3, true
	case '3':
		return 4, true
	default:
		return 0, false
	}
}

// parseSRecord decodes a Motorola S-record file per spec §4.3. Unlike
// IHEX, any address discontinuity between consecutive data records
// forces a new section — there is no 64k-wraparound heuristic here,
// since every data record already carries its full address width.
func parseSRecord(src FileSource, log Logger) (*srecState, error) {
	if log == nil {
		log = nopLogger{}
	}

	fsize, err := src.Size()
	if err != nil {
		return nil, fileIOErrorf("cannot determine S-record file size: %w", err)
	}

	st := &srecState{
		buf: make([]byte, 0, fsize/2+1),
	}

	for {
		line, ok, err := src.ReadLine(LineBufferSize)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		trimmed := strings.TrimRight(line, "\r\n")
		blank := strings.TrimLeft(trimmed, " \t")
		if blank == "" {
			continue
		}

		if st.sawTerminator {
			log.Warningf("continuing after terminator record: %.40s", trimmed)
			continue
		}

		if len(trimmed) < 4 || trimmed[0] != 'S' {
			return nil, formatErrorf("invalid S-record: %q", trimmed)
		}

		stype := trimmed[1]
		count, ok := decodeHexByte(trimmed, 2)
		if !ok {
			return nil, formatErrorf("invalid S-record length field: %q", trimmed)
		}

		need := 4 + int(count)*2
		if len(trimmed) < need {
			return nil, formatErrorf("truncated S-record: %q", trimmed)
		}

		checksum := count
		pos := 4
		remaining := int(count)

		switch stype {
		case '0': // header/comment, no data
			remaining-- // trailing checksum byte is not part of the header payload
			for i := 0; i < remaining; i++ {
				b, ok := decodeHexByte(trimmed, pos)
				if !ok {
					return nil, formatErrorf("invalid S0 record: %q", trimmed)
				}
				checksum += b
				pos += 2
			}

		case '1', '2', '3':
			addrBytes, _ := addressBytesForType(stype)
			if remaining < addrBytes+1 {
				return nil, formatErrorf("short data record: %q", trimmed)
			}
			address, ok := decodeHexUint32(trimmed, pos, addrBytes)
			if !ok {
				return nil, formatErrorf("invalid address in S-record: %q", trimmed)
			}
			for i := 0; i < addrBytes; i++ {
				b, _ := decodeHexByte(trimmed, pos+i*2)
				checksum += b
			}
			pos += addrBytes * 2
			remaining -= addrBytes + 1 // +1 for the trailing checksum byte

			if len(st.sections) == 0 && st.current.Size == 0 {
				st.current.BaseAddress = uint64(address)
				st.fullAddress = address
			} else if address != st.fullAddress {
				if st.current.Size != 0 {
					if err := st.closeCurrentSection(); err != nil {
						return nil, err
					}
				}
				st.current.BaseAddress = uint64(address)
				st.fullAddress = address
			}

			for i := 0; i < remaining; i++ {
				b, ok := decodeHexByte(trimmed, pos)
				if !ok {
					return nil, formatErrorf("invalid hex data in S-record: %q", trimmed)
				}
				st.buf = append(st.buf, b)
				checksum += b
				pos += 2
				st.current.Size++
				st.fullAddress++
			}

		case '5', '6': // record count, informational only
			remaining--
			for i := 0; i < remaining; i++ {
				b, ok := decodeHexByte(trimmed, pos)
				if !ok {
					return nil, formatErrorf("invalid S5/S6 record: %q", trimmed)
				}
				checksum += b
				pos += 2
			}

		case '7', '8', '9': // termination record, carries start address
			addrBytes := 0
			switch stype {
			case '7':
				addrBytes = 4
			case '8':
				addrBytes = 3
			case '9':
				addrBytes = 2
			}
			val, ok := decodeHexUint32(trimmed, pos, addrBytes)
			if !ok {
				return nil, formatErrorf("invalid termination record: %q", trimmed)
			}
			for i := 0; i < addrBytes; i++ {
				b, _ := decodeHexByte(trimmed, pos+i*2)
				checksum += b
			}
			pos += addrBytes * 2
			_ = val // termination address is checksummed but not propagated, per spec
			if st.current.Size != 0 {
				if err := st.closeCurrentSection(); err != nil {
					return nil, err
				}
			}
			st.sawTerminator = true

		default:
			return nil, formatErrorf("unhandled S-record type: %q", trimmed)
		}

		recChecksum, ok := decodeHexByte(trimmed, pos)
		if !ok {
			return nil, formatErrorf("invalid S-record checksum: %q", trimmed)
		}
		if byte(checksum)+recChecksum != 0xFF {
			return nil, checksumErrorf("incorrect record checksum found in S-record file: %q", trimmed)
		}
	}

	if !st.sawTerminator {
		return nil, formatErrorf("premature end of S-record file, no terminator record found")
	}

	return st, nil
}
