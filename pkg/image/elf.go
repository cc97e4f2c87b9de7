package image

import (
	"bytes"
	"debug/elf"
)

// elfBacking serves sections straight out of the PT_LOAD segments of a
// parsed ELF file. Each Section records the segment it came from as an
// index into segs, never a pointer into the debug/elf.File itself.
type elfBacking struct {
	file *elf.File
	segs []*elf.Prog
}

func (b *elfBacking) readSection(sec int, offset, length uint32, out []byte) (int, error) {
	seg := b.segs[sec]

	if uint64(offset) >= seg.Filesz {
		for i := range out[:length] {
			out[i] = 0
		}
		return 0, nil
	}

	readLen := length
	if uint64(offset)+uint64(length) > seg.Filesz {
		readLen = uint32(seg.Filesz - uint64(offset))
	}

	n, err := seg.ReadAt(out[:readLen], int64(offset))
	if err != nil && n < int(readLen) {
		return 0, fileIOErrorf("cannot read ELF segment content: %w", err)
	}
	for i := int(readLen); i < int(length); i++ {
		out[i] = 0
	}
	return int(readLen), nil
}

func (b *elfBacking) close() error {
	if b.file != nil {
		b.file.Close()
	}
	b.segs = nil
	return nil
}

// parseELF loads an ELF32/64 image per spec §4.4: only PT_LOAD segments
// with a nonzero file size become sections, base addresses follow the
// physical/virtual heuristic below, and the entry point becomes the
// image start address.
func parseELF(src FileSource) (*Image, *elfBacking, error) {
	size, err := src.Size()
	if err != nil {
		return nil, nil, fileIOErrorf("cannot determine ELF file size: %w", err)
	}
	if err := src.Seek(0); err != nil {
		return nil, nil, err
	}
	raw, err := readExact(src, int(size))
	if err != nil {
		return nil, nil, err
	}

	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, formatErrorf("invalid ELF file: %v", err)
	}

	// Some linkers emit every program header with p_paddr == 0 (one
	// loadable segment legitimately having physical address 0 is fine).
	// When that happens across more than one PT_LOAD header, fall back
	// to p_vaddr as the load address instead — the ARM ELF standard
	// requires p_paddr == 0 anyway, and BFD applies the same workaround.
	nload := 0
	loadToVaddr := false
	brokeEarly := false
	for _, p := range f.Progs {
		if p.Paddr != 0 {
			brokeEarly = true
			break
		}
		if p.Type == elf.PT_LOAD && p.Memsz != 0 {
			nload++
		}
	}
	if !brokeEarly && nload > 1 {
		loadToVaddr = true
	}

	var sections []Section
	var segs []*elf.Prog
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		base := p.Paddr
		if loadToVaddr {
			base = p.Vaddr
		}
		sections = append(sections, Section{
			BaseAddress: base,
			Size:        uint32(p.Filesz),
			Flags:       uint64(p.Flags),
		})
		segs = append(segs, p)
	}

	if len(sections) == 0 {
		return nil, nil, formatErrorf("invalid ELF file, no loadable segments")
	}

	img := &Image{
		Type:            TypeELF,
		Sections:        sections,
		StartAddress:    f.Entry,
		StartAddressSet: true,
	}
	return img, &elfBacking{file: f, segs: segs}, nil
}
