package image

import "strings"

// ihexBacking owns the single decoded byte buffer for an IHEX image.
// Sections never hold their own pointer into it (the buffer can grow
// during parsing); instead each section's starting offset is recorded
// in offsets, indexed the same way as Image.Sections.
type ihexBacking struct {
	src     FileSource
	buf     []byte
	offsets []uint32
}

func (b *ihexBacking) readSection(sec int, offset, length uint32, out []byte) (int, error) {
	start := b.offsets[sec] + offset
	copy(out, b.buf[start:start+length])
	return int(length), nil
}

func (b *ihexBacking) close() error {
	var err error
	if b.src != nil {
		err = b.src.Close()
	}
	b.buf = nil
	b.offsets = nil
	return err
}

// ihexState tracks an in-progress IHEX parse.
type ihexState struct {
	sections []Section
	offsets  []uint32
	buf      []byte

	current      Section
	currentStart uint32
	fullAddress  uint32

	startAddress uint64
	startSet     bool
}

func (s *ihexState) closeCurrentSection() error {
	if len(s.sections) >= MaxSections {
		return formatErrorf("too many sections found in IHEX file")
	}
	s.sections = append(s.sections, s.current)
	s.offsets = append(s.offsets, s.currentStart)
	s.current = Section{}
	s.currentStart = uint32(len(s.buf))
	return nil
}

// rebase starts a new section at newBase unless the current section is
// still empty, in which case the current (empty) section is simply
// re-based — this is the "split unless empty" heuristic spec §4.2/§4.3
// both describe.
func (s *ihexState) rebase(newBase uint32) error {
	if s.current.Size != 0 {
		if err := s.closeCurrentSection(); err != nil {
			return err
		}
	}
	s.current.BaseAddress = uint64(newBase)
	s.fullAddress = newBase
	return nil
}

// parseIHex decodes an Intel HEX file per spec §4.2, returning the
// section list, per-section buffer offsets, the shared decoded buffer,
// and any start address found in a record 05.
func parseIHex(src FileSource, log Logger) (*ihexState, error) {
	if log == nil {
		log = nopLogger{}
	}

	fsize, err := src.Size()
	if err != nil {
		return nil, fileIOErrorf("cannot determine IHEX file size: %w", err)
	}

	st := &ihexState{
		buf: make([]byte, 0, fsize/2+1),
	}

	sawEOF := false
	warnedTrailing := false

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

		if sawEOF {
			if blank != "" {
				log.Warningf("continuing after end-of-file record: %.40s", trimmed)
				warnedTrailing = true
			}
			if warnedTrailing {
				continue
			}
			continue
		}

		if blank == "" || blank[0] == '#' {
			continue
		}

		if len(trimmed) < 9 || trimmed[0] != ':' {
			return nil, formatErrorf("invalid IHEX record: %q", trimmed)
		}

		count, ok1 := decodeHexByte(trimmed, 1)
		address32, ok2 := decodeHexUint32(trimmed, 3, 2)
		rtype, ok3 := decodeHexByte(trimmed, 7)
		if !ok1 || !ok2 || !ok3 {
			return nil, formatErrorf("invalid IHEX record: %q", trimmed)
		}
		address := address32

		dataStart := 9
		need := dataStart + int(count)*2 + 2
		if len(trimmed) < need {
			return nil, formatErrorf("truncated IHEX record: %q", trimmed)
		}

		checksum := count + byte(address>>8) + byte(address) + rtype
		pos := dataStart

		switch rtype {
		case 0x00: // data record
			if st.fullAddress&0xFFFF != address {
				if err := st.rebase((st.fullAddress & 0xFFFF0000) | address); err != nil {
					return nil, err
				}
			}
			for i := 0; i < int(count); i++ {
				b, ok := decodeHexByte(trimmed, pos)
				if !ok {
					return nil, formatErrorf("invalid hex data in IHEX record: %q", trimmed)
				}
				st.buf = append(st.buf, b)
				checksum += b
				pos += 2
				st.current.Size++
				st.fullAddress++
			}

		case 0x01: // end of file
			if err := st.closeCurrentSection(); err != nil {
				return nil, err
			}
			sawEOF = true

		case 0x02: // extended segment address
			upper, ok := decodeHexUint32(trimmed, pos, 2)
			if !ok {
				return nil, formatErrorf("invalid IHEX record: %q", trimmed)
			}
			checksum += byte(upper>>8) + byte(upper)
			pos += 4
			if st.fullAddress>>4 != upper {
				if err := st.rebase((st.fullAddress & 0xFFFF) | (upper << 4)); err != nil {
					return nil, err
				}
			}

		case 0x03: // start segment address, consumed but not stored
			for i := 0; i < int(count); i++ {
				b, ok := decodeHexByte(trimmed, pos)
				if !ok {
					return nil, formatErrorf("invalid IHEX record: %q", trimmed)
				}
				checksum += b
				pos += 2
			}

		case 0x04: // extended linear address
			upper, ok := decodeHexUint32(trimmed, pos, 2)
			if !ok {
				return nil, formatErrorf("invalid IHEX record: %q", trimmed)
			}
			checksum += byte(upper>>8) + byte(upper)
			pos += 4
			if st.fullAddress>>16 != upper {
				if err := st.rebase((st.fullAddress & 0xFFFF) | (upper << 16)); err != nil {
					return nil, err
				}
			}

		case 0x05: // start linear address
			// Decoded as written: hex text has no host byte order, so the
			// value below is already big-endian-as-written. See
			// DESIGN.md open question #1 for why no further swap applies.
			val, ok := decodeHexUint32(trimmed, pos, 4)
			if !ok {
				return nil, formatErrorf("invalid IHEX record: %q", trimmed)
			}
			checksum += byte(val>>24) + byte(val>>16) + byte(val>>8) + byte(val)
			pos += 8
			st.startSet = true
			st.startAddress = uint64(val)

		default:
			return nil, formatErrorf("unhandled IHEX record type 0x%02X", rtype)
		}

		recChecksum, ok := decodeHexByte(trimmed, pos)
		if !ok {
			return nil, formatErrorf("invalid IHEX checksum in record: %q", trimmed)
		}
		if recChecksum != byte(-checksum) {
			return nil, checksumErrorf("incorrect record checksum found in IHEX file: %q", trimmed)
		}
	}

	if !sawEOF {
		return nil, formatErrorf("premature end of IHEX file, no matching end-of-file record found")
	}

	return st, nil
}
