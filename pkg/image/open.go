package image

// binaryBacking reads directly out of the underlying file, one section
// (the whole file) wide.
type binaryBacking struct {
	src FileSource
}

func (b *binaryBacking) readSection(sec int, offset, length uint32, out []byte) (int, error) {
	if sec != 0 {
		return 0, formatErrorf("plain binary images only have one section")
	}
	if err := b.src.Seek(int64(offset)); err != nil {
		return 0, err
	}
	buf, err := b.src.Read(int(length))
	if err != nil {
		return 0, err
	}
	copy(out, buf)
	return len(buf), nil
}

func (b *binaryBacking) close() error {
	if b.src != nil {
		return b.src.Close()
	}
	return nil
}

// OpenOptions configures Open. TypeHint forces a container format
// ("bin", "ihex", "elf", "s19", "mem", "build") instead of
// autodetecting it from the file's magic bytes. BaseAddress, when
// BaseAddressSet, is added to every section's base address once
// loading completes. Target and MemoryCacheSize apply to TypeMemory
// only. Log defaults to a no-op sink when nil.
type OpenOptions struct {
	TypeHint        string
	BaseAddress     uint64
	BaseAddressSet  bool
	Target          Target
	MemoryCacheSize uint32
	Log             Logger
}

// Open loads url as an Image according to opts. The returned Image must
// be closed with Close once the caller is done reading sections from
// it.
func Open(url string, opts OpenOptions) (*Image, error) {
	log := opts.Log
	if log == nil {
		log = nopLogger{}
	}

	typ, err := identifyType(url, opts.TypeHint)
	if err != nil {
		return nil, err
	}

	var img *Image

	switch typ {
	case TypeBinary:
		src, err := openFile(url)
		if err != nil {
			return nil, err
		}
		size, err := src.Size()
		if err != nil {
			src.Close()
			return nil, err
		}
		img = &Image{
			Type:     TypeBinary,
			Sections: []Section{{BaseAddress: 0, Size: uint32(size)}},
			backing:  &binaryBacking{src: src},
			log:      log,
		}

	case TypeIHex:
		src, err := openFile(url)
		if err != nil {
			return nil, err
		}
		st, err := parseIHex(src, log)
		if err != nil {
			src.Close()
			return nil, err
		}
		img = &Image{
			Type:            TypeIHex,
			Sections:        st.sections,
			StartAddress:    st.startAddress,
			StartAddressSet: st.startSet,
			backing:         &ihexBacking{src: src, buf: st.buf, offsets: st.offsets},
			log:             log,
		}

	case TypeSRecord:
		src, err := openFile(url)
		if err != nil {
			return nil, err
		}
		st, err := parseSRecord(src, log)
		if err != nil {
			src.Close()
			return nil, err
		}
		img = &Image{
			Type:            TypeSRecord,
			Sections:        st.sections,
			StartAddress:    st.startAddress,
			StartAddressSet: st.startSet,
			backing:         &srecordBacking{src: src, buf: st.buf, offsets: st.offsets},
			log:             log,
		}

	case TypeELF:
		src, err := openFile(url)
		if err != nil {
			return nil, err
		}
		elfImg, backing, err := parseELF(src)
		if err != nil {
			src.Close()
			return nil, err
		}
		img = elfImg
		img.backing = backing
		img.log = log
		// parseELF reads the whole file up front; the handle itself is
		// no longer needed once the segments are mapped into memory.
		src.Close()

	case TypeMemory:
		if opts.Target == nil {
			return nil, unavailableErrorf("memory image requires a target, none configured for %s", url)
		}
		img = &Image{
			Type:     TypeMemory,
			Sections: []Section{{BaseAddress: 0, Size: 0xffffffff}},
			backing:  newMemoryBacking(opts.Target, opts.MemoryCacheSize),
			log:      log,
		}

	case TypeBuilder:
		img = NewBuilder()
		img.log = log

	default:
		return nil, unknownTypeErrorf("unsupported image type for %s", url)
	}

	if opts.BaseAddressSet {
		for i := range img.Sections {
			img.Sections[i].BaseAddress += opts.BaseAddress
		}
	}

	return img, nil
}
