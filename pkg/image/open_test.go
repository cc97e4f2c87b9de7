package image

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fw.bin")
	content := []byte{0x10, 0x20, 0x30, 0x40}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	img, err := Open(path, OpenOptions{TypeHint: "bin"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	if len(img.Sections) != 1 || img.Sections[0].Size != uint32(len(content)) {
		t.Fatalf("sections = %+v, want one section of size %d", img.Sections, len(content))
	}

	out := make([]byte, 4)
	if _, err := img.ReadSection(0, 0, 4, out); err != nil {
		t.Fatalf("ReadSection() error = %v", err)
	}
	for i := range content {
		if out[i] != content[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, out[i], content[i])
		}
	}
}

func TestOpenBinaryWithBaseAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fw.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	img, err := Open(path, OpenOptions{TypeHint: "bin", BaseAddress: 0x08000000, BaseAddressSet: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	if img.Sections[0].BaseAddress != 0x08000000 {
		t.Errorf("base address = 0x%X, want 0x08000000", img.Sections[0].BaseAddress)
	}
}

func TestOpenMemoryRequiresTarget(t *testing.T) {
	_, err := Open("irrelevant", OpenOptions{TypeHint: "mem"})
	if err == nil {
		t.Fatal("expected an error opening a memory image with no target configured")
	}
}

func TestOpenMemory(t *testing.T) {
	target := newFakeTarget()
	target.set(0x2000, []byte{0xAA, 0xBB, 0xCC, 0xDD})

	img, err := Open("irrelevant", OpenOptions{TypeHint: "mem", Target: target, MemoryCacheSize: 16})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	out := make([]byte, 4)
	n, err := img.ReadSection(0, 0x2000, 4, out)
	if err != nil || n != 4 {
		t.Fatalf("ReadSection() = (%d, %v)", n, err)
	}
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestOpenBuilder(t *testing.T) {
	img, err := Open("irrelevant", OpenOptions{TypeHint: "build"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	if img.Type != TypeBuilder {
		t.Errorf("Type = %v, want TypeBuilder", img.Type)
	}
	if err := img.AddSection(0, 0, []byte{1, 2, 3}); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if len(img.Sections) != 1 {
		t.Errorf("got %d sections, want 1", len(img.Sections))
	}
}

func TestOpenELF(t *testing.T) {
	b := &elf32Builder{
		segments: []elf32Segment{
			{vaddr: 0x8000, paddr: 0x08000000, data: []byte{0xDE, 0xAD, 0xBE, 0xEF}, flags: 5},
		},
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fw.elf")
	if err := os.WriteFile(path, b.build(t), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	img, err := Open(path, OpenOptions{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	if img.Type != TypeELF {
		t.Fatalf("Type = %v, want TypeELF (autodetected)", img.Type)
	}
	if img.Sections[0].BaseAddress != 0x08000000 {
		t.Errorf("base address = 0x%X, want physical 0x08000000", img.Sections[0].BaseAddress)
	}
}

func TestReadSectionOutOfRange(t *testing.T) {
	img, err := Open("irrelevant", OpenOptions{TypeHint: "build"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	if _, err := img.ReadSection(0, 0, 1, make([]byte, 1)); err == nil {
		t.Fatal("expected an error reading a section index that does not exist")
	}
}
