// Package image opens firmware images in Intel HEX, Motorola S-record,
// ELF32/64, raw binary, live-target, or caller-built form and exposes
// them as an ordered list of loadable sections with uniform random
// access reads.
package image

// Type identifies the container format an Image was opened as.
type Type int

const (
	TypeBinary Type = iota
	TypeIHex
	TypeSRecord
	TypeELF
	TypeMemory
	TypeBuilder
)

func (t Type) String() string {
	switch t {
	case TypeBinary:
		return "bin"
	case TypeIHex:
		return "ihex"
	case TypeSRecord:
		return "s19"
	case TypeELF:
		return "elf"
	case TypeMemory:
		return "mem"
	case TypeBuilder:
		return "build"
	default:
		return "unknown"
	}
}

// MaxSections caps the number of sections a text-format (IHEX/S-record)
// image may decode into.
const MaxSections = 128

// DefaultMemoryCacheSize is the page size used by the live-target Memory
// image when the caller does not override it. Must stay a power of two.
const DefaultMemoryCacheSize = 512

// LineBufferSize bounds a single text record line for IHEX/S-record parsing.
const LineBufferSize = 1023

// Section describes one contiguous, independently-readable span of an
// Image: its target base address, byte length, and format-specific flags
// (ELF p_flags for ELF images, caller-supplied for builder images, 0
// otherwise).
type Section struct {
	BaseAddress uint64
	Size        uint32
	Flags       uint64
}

// backing is the per-type private state of an Image. Each concrete format
// implements it; Image.ReadSection and Image.Close dispatch to it by
// interface call instead of a switch over Type, which is the discriminated
// tagged-variant the design notes call for, expressed the idiomatic Go way.
type backing interface {
	readSection(sec int, offset, length uint32, out []byte) (int, error)
	close() error
}

// Image is the decoded, ready-to-read representation of a firmware image.
// Construct one with Open or NewBuilder; release it with Close.
type Image struct {
	Type     Type
	Sections []Section

	// StartAddress is the entry point, if the format carries one (IHEX
	// record 05, ELF e_entry). StartAddressSet reports whether it is valid.
	StartAddress    uint64
	StartAddressSet bool

	backing backing
	log     Logger
}

// ReadSection reads length bytes starting at offset within section sec
// into out (which must be at least length bytes) and returns the number
// of bytes read. It fails with a syntax-kind error if the requested range
// runs past the end of the section.
func (img *Image) ReadSection(sec int, offset, length uint32, out []byte) (int, error) {
	if sec < 0 || sec >= len(img.Sections) {
		return 0, syntaxErrorf("section index %d out of range (have %d sections)", sec, len(img.Sections))
	}
	if uint64(offset)+uint64(length) > uint64(img.Sections[sec].Size) {
		return 0, syntaxErrorf("read past end of section %d: 0x%x + 0x%x > 0x%x",
			sec, offset, length, img.Sections[sec].Size)
	}
	if length == 0 {
		return 0, nil
	}
	if len(out) < int(length) {
		return 0, syntaxErrorf("output buffer too small: have %d, need %d", len(out), length)
	}
	return img.backing.readSection(sec, offset, length, out)
}

// Close releases every resource the image owns (file handles, decoded
// buffers, caches). It is safe to call more than once.
func (img *Image) Close() error {
	if img.backing == nil {
		return nil
	}
	err := img.backing.close()
	img.backing = nil
	img.Sections = nil
	return err
}

// Symbol is one resolved name returned by ResolveSymbols: the requested
// Name and the Offset it resolved to. Names that do not resolve are left
// out of the result.
type Symbol struct {
	Name   string
	Offset uint32
}
