package image

// builderBacking accumulates sections added with AddSection. Like the
// hex-format backings, it owns one growing buffer; each section's bytes
// live at a recorded offset rather than behind a pointer that a realloc
// could invalidate.
type builderBacking struct {
	buf     []byte
	offsets []uint32
}

func (b *builderBacking) readSection(sec int, offset, length uint32, out []byte) (int, error) {
	start := b.offsets[sec] + offset
	copy(out, b.buf[start:start+length])
	return int(length), nil
}

func (b *builderBacking) close() error {
	b.buf = nil
	b.offsets = nil
	return nil
}

// NewBuilder creates an empty, appendable image. Only images of
// TypeBuilder accept AddSection; every other image type is read-only
// once opened.
func NewBuilder() *Image {
	return &Image{
		Type:    TypeBuilder,
		backing: &builderBacking{},
	}
}

// AddSection appends data as a new section at base, or extends the
// previous section in place when base picks up exactly where it left
// off and flags match — merging non-adjacent sections or sections with
// different flags is not supported, matching the block-assembly
// behavior the firmware loaders in this module rely on.
func (img *Image) AddSection(base uint64, flags uint64, data []byte) error {
	if img.Type != TypeBuilder {
		return syntaxErrorf("only builder images support AddSection")
	}
	b, ok := img.backing.(*builderBacking)
	if !ok {
		return syntaxErrorf("image has no builder backing")
	}

	if n := len(img.Sections); n > 0 {
		last := &img.Sections[n-1]
		if last.BaseAddress+uint64(last.Size) == base && last.Flags == flags {
			b.buf = append(b.buf, data...)
			last.Size += uint32(len(data))
			return nil
		}
	}

	if len(img.Sections) >= MaxSections {
		return formatErrorf("too many sections added to builder image")
	}

	b.offsets = append(b.offsets, uint32(len(b.buf)))
	b.buf = append(b.buf, data...)
	img.Sections = append(img.Sections, Section{
		BaseAddress: base,
		Size:        uint32(len(data)),
		Flags:       flags,
	})
	return nil
}
