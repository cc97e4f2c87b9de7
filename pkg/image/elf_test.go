package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// elf32Builder assembles a minimal, valid ELF32 file byte-for-byte so
// parseELF and ResolveSymbols can be exercised without a fixture binary
// checked into the tree.
type elf32Builder struct {
	segments   []elf32Segment
	shstrtab   []string
	syms       []elf32Sym
	omitSymtab bool // when true, no SHT_SYMTAB section or symbol string table is emitted
}

type elf32Segment struct {
	vaddr, paddr uint32
	data         []byte
	flags        uint32
}

type elf32Sym struct {
	name  string
	value uint32
	shndx uint16
}

func u32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func u16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }

// strtabBytes builds a SysV string table (leading NUL, NUL-terminated
// entries) and returns it along with each name's offset.
func strtabBytes(names []string) ([]byte, map[string]uint32) {
	buf := []byte{0}
	offsets := make(map[string]uint32, len(names))
	for _, n := range names {
		offsets[n] = uint32(len(buf))
		buf = append(buf, []byte(n)...)
		buf = append(buf, 0)
	}
	return buf, offsets
}

func (b *elf32Builder) build(t *testing.T) []byte {
	t.Helper()

	const ehdrSize = 52
	const phdrSize = 32
	const shdrSize = 40
	const symSize = 16

	phoff := uint32(ehdrSize)
	dataOff := phoff + uint32(len(b.segments))*phdrSize

	var data bytes.Buffer
	segFileOffsets := make([]uint32, len(b.segments))
	for i, seg := range b.segments {
		segFileOffsets[i] = dataOff + uint32(data.Len())
		data.Write(seg.data)
	}

	shstrBytes, shstrOffsets := strtabBytes(b.shstrtab)

	symstrNames := make([]string, 0, len(b.syms))
	for _, s := range b.syms {
		symstrNames = append(symstrNames, s.name)
	}
	var symstrBytes []byte
	var symstrOffsets map[string]uint32
	if !b.omitSymtab {
		symstrBytes, symstrOffsets = strtabBytes(symstrNames)
	}

	shstrtabOff := dataOff + uint32(data.Len())

	// section indices: 0=NULL, 1..n=named sections, then shstrtab, and
	// (unless omitSymtab) symtab, strtab.
	numNamed := len(b.shstrtab)
	shstrtabIdx := uint16(1 + numNamed)

	var symtabOff, strtabOff, shoff uint32
	var symtabIdx, strtabIdx, shnum uint16
	if b.omitSymtab {
		shoff = shstrtabOff + uint32(len(shstrBytes))
		shnum = shstrtabIdx + 1
	} else {
		symtabOff = shstrtabOff + uint32(len(shstrBytes))
		strtabOff = symtabOff + uint32(len(b.syms)+1)*symSize
		shoff = strtabOff + uint32(len(symstrBytes))
		symtabIdx = shstrtabIdx + 1
		strtabIdx = symtabIdx + 1
		shnum = strtabIdx + 1
	}

	var out bytes.Buffer

	// e_ident
	out.Write([]byte{0x7F, 'E', 'L', 'F', 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	u16(&out, 2)        // e_type = ET_EXEC
	u16(&out, 40)       // e_machine = EM_ARM
	u32(&out, 1)        // e_version
	u32(&out, b.segments[0].vaddr) // e_entry
	u32(&out, phoff)
	u32(&out, shoff)
	u32(&out, 0) // e_flags
	u16(&out, ehdrSize)
	u16(&out, phdrSize)
	u16(&out, uint16(len(b.segments)))
	u16(&out, shdrSize)
	u16(&out, shnum)
	u16(&out, shstrtabIdx)

	for i, seg := range b.segments {
		u32(&out, 1) // PT_LOAD
		u32(&out, segFileOffsets[i])
		u32(&out, seg.vaddr)
		u32(&out, seg.paddr)
		u32(&out, uint32(len(seg.data)))
		u32(&out, uint32(len(seg.data)))
		u32(&out, seg.flags)
		u32(&out, 4)
	}

	out.Write(data.Bytes())
	out.Write(shstrBytes)

	if !b.omitSymtab {
		out.Write(make([]byte, symSize)) // index 0: reserved null symbol
		for _, s := range b.syms {
			u32(&out, symstrOffsets[s.name])
			u32(&out, s.value)
			u32(&out, 0)
			out.WriteByte(0) // st_info
			out.WriteByte(0) // st_other
			u16(&out, s.shndx)
		}
		out.Write(symstrBytes)
	}

	// NULL section header
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)

	for i, name := range b.shstrtab {
		u32(&out, shstrOffsets[name])
		u32(&out, 1) // SHT_PROGBITS
		u32(&out, 2) // SHF_ALLOC
		u32(&out, b.segments[i].vaddr)
		u32(&out, segFileOffsets[i])
		u32(&out, uint32(len(b.segments[i].data)))
		u32(&out, 0)
		u32(&out, 0)
		u32(&out, 4)
		u32(&out, 0)
	}

	// shstrtab section header
	u32(&out, 0)
	u32(&out, 3) // SHT_STRTAB
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, shstrtabOff)
	u32(&out, uint32(len(shstrBytes)))
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 1)
	u32(&out, 0)

	if !b.omitSymtab {
		// symtab section header
		u32(&out, 0)
		u32(&out, 2) // SHT_SYMTAB
		u32(&out, 0)
		u32(&out, 0)
		u32(&out, symtabOff)
		u32(&out, uint32(len(b.syms)+1)*symSize)
		u32(&out, uint32(strtabIdx)) // sh_link -> strtab
		u32(&out, 0)
		u32(&out, 4)
		u32(&out, symSize)

		// strtab section header
		u32(&out, 0)
		u32(&out, 3) // SHT_STRTAB
		u32(&out, 0)
		u32(&out, 0)
		u32(&out, strtabOff)
		u32(&out, uint32(len(symstrBytes)))
		u32(&out, 0)
		u32(&out, 0)
		u32(&out, 1)
		u32(&out, 0)
	}

	return out.Bytes()
}

func TestParseELFSingleSegmentPhysicalAddress(t *testing.T) {
	b := &elf32Builder{
		segments: []elf32Segment{
			{vaddr: 0x8000, paddr: 0x20000000, data: []byte{1, 2, 3, 4}, flags: 5},
		},
	}
	src := newMemFileSource(b.build(t))
	img, backing, err := parseELF(src)
	if err != nil {
		t.Fatalf("parseELF() error = %v", err)
	}
	defer backing.close()

	if len(img.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(img.Sections))
	}
	if img.Sections[0].BaseAddress != 0x20000000 {
		t.Errorf("base address = 0x%X, want physical 0x20000000", img.Sections[0].BaseAddress)
	}
	if !img.StartAddressSet || img.StartAddress != 0x8000 {
		t.Errorf("entry = (set=%v, 0x%X), want (true, 0x8000)", img.StartAddressSet, img.StartAddress)
	}

	out := make([]byte, 4)
	n, err := backing.readSection(0, 0, 4, out)
	if err != nil || n != 4 {
		t.Fatalf("readSection() = (%d, %v)", n, err)
	}
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Errorf("data = % X, want 01 02 03 04", out)
	}
}

func TestParseELFZeroPaddrFallsBackToVaddr(t *testing.T) {
	b := &elf32Builder{
		segments: []elf32Segment{
			{vaddr: 0x1000, paddr: 0, data: []byte{0xAA}, flags: 5},
			{vaddr: 0x2000, paddr: 0, data: []byte{0xBB}, flags: 5},
		},
	}
	src := newMemFileSource(b.build(t))
	img, backing, err := parseELF(src)
	if err != nil {
		t.Fatalf("parseELF() error = %v", err)
	}
	defer backing.close()

	if img.Sections[0].BaseAddress != 0x1000 || img.Sections[1].BaseAddress != 0x2000 {
		t.Errorf("sections = %+v, want vaddr-based bases 0x1000/0x2000", img.Sections)
	}
}

func TestResolveSymbolsSectionAndSymtab(t *testing.T) {
	b := &elf32Builder{
		segments: []elf32Segment{
			{vaddr: 0x4000, paddr: 0x4000, data: []byte{0, 0, 0, 0}, flags: 5},
		},
		shstrtab: []string{".flash_algo"},
		syms: []elf32Sym{
			{name: "SystemInit", value: 0x4010, shndx: 1},
			{name: "Reset_Handler", value: 0, shndx: 0}, // SHN_UNDEF (undefined section), must not override
		},
	}
	src := newMemFileSource(b.build(t))
	img, backing, err := parseELF(src)
	if err != nil {
		t.Fatalf("parseELF() error = %v", err)
	}
	img.backing = backing

	syms, err := img.ResolveSymbols([]string{".flash_algo", "SystemInit", "Reset_Handler", "missing"})
	if err != nil {
		t.Fatalf("ResolveSymbols() error = %v", err)
	}

	got := map[string]uint32{}
	for _, s := range syms {
		got[s.Name] = s.Offset
	}

	if got[".flash_algo"] != 0x4000 {
		t.Errorf(".flash_algo resolved to 0x%X, want 0x4000 (section address)", got[".flash_algo"])
	}
	if got["SystemInit"] != 0x4010 {
		t.Errorf("SystemInit resolved to 0x%X, want 0x4010 (symtab value)", got["SystemInit"])
	}
	if _, ok := got["Reset_Handler"]; ok {
		t.Errorf("Reset_Handler is in SHN_UNDEF and should not resolve")
	}
	if _, ok := got["missing"]; ok {
		t.Errorf("missing should not resolve to anything")
	}
}

func TestResolveSymbolsMissingSymtabIsFormatError(t *testing.T) {
	b := &elf32Builder{
		segments: []elf32Segment{
			{vaddr: 0x4000, paddr: 0x4000, data: []byte{0, 0, 0, 0}, flags: 5},
		},
		shstrtab:   []string{".flash_algo"},
		omitSymtab: true,
	}
	src := newMemFileSource(b.build(t))
	img, backing, err := parseELF(src)
	if err != nil {
		t.Fatalf("parseELF() error = %v", err)
	}
	img.backing = backing

	_, err = img.ResolveSymbols([]string{".flash_algo"})
	if err == nil {
		t.Fatal("expected an error resolving symbols on an ELF file with no SHT_SYMTAB")
	}
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected KindFormat, got %v", err)
	}
}
