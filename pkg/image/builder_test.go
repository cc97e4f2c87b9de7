package image

import (
	"errors"
	"testing"
)

func TestBuilderCoalescesAdjacentSections(t *testing.T) {
	img := NewBuilder()

	if err := img.AddSection(0x1000, 0, []byte{1, 2}); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if err := img.AddSection(0x1002, 0, []byte{3, 4}); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}

	if len(img.Sections) != 1 {
		t.Fatalf("got %d sections, want 1 (adjacent same-flags runs should coalesce)", len(img.Sections))
	}
	if img.Sections[0].Size != 4 {
		t.Errorf("section size = %d, want 4", img.Sections[0].Size)
	}

	out := make([]byte, 4)
	n, err := img.ReadSection(0, 0, 4, out)
	if err != nil || n != 4 {
		t.Fatalf("ReadSection() = (%d, %v)", n, err)
	}
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("byte %d = 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestBuilderSplitsOnGapOrFlagChange(t *testing.T) {
	img := NewBuilder()

	if err := img.AddSection(0x1000, 0, []byte{1, 2}); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if err := img.AddSection(0x2000, 0, []byte{3, 4}); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if err := img.AddSection(0x2002, 7, []byte{5, 6}); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}

	if len(img.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(img.Sections))
	}
}

// TestAddSectionTooManySections exercises the same 128/129-section
// boundary as the IHEX and S-record parsers (spec §8), but through
// AddSection: 128 non-adjacent sections succeed, the 129th must fail
// with a format error.
func TestAddSectionTooManySections(t *testing.T) {
	img := NewBuilder()
	for i := 0; i < MaxSections; i++ {
		base := uint64(i) * 0x10000
		if err := img.AddSection(base, 0, []byte{byte(i)}); err != nil {
			t.Fatalf("AddSection() call %d error = %v", i, err)
		}
	}

	err := img.AddSection(uint64(MaxSections)*0x10000, 0, []byte{0xFF})
	if err == nil {
		t.Fatal("expected a format error for exceeding the 128-section cap")
	}
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected KindFormat, got %v", err)
	}
}

func TestAddSectionRejectsNonBuilderImage(t *testing.T) {
	img := &Image{Type: TypeBinary}
	err := img.AddSection(0, 0, []byte{1})
	if err == nil {
		t.Fatal("expected an error adding a section to a non-builder image")
	}
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("expected KindSyntax, got %v", err)
	}
}
