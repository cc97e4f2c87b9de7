package image

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseSRecordContiguousAndSplit(t *testing.T) {
	input := "S00600004844521B\n" +
		"S107000000003800C0\n" +
		"S1050004AABB91\n" +
		"S1050100CCDD50\n" +
		"S9030000FC\n"
	src := newMemFileSourceString(input)
	st, err := parseSRecord(src, nil)
	if err != nil {
		t.Fatalf("parseSRecord() error = %v", err)
	}
	if len(st.sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(st.sections))
	}

	first := st.sections[0]
	if first.BaseAddress != 0 || first.Size != 6 {
		t.Errorf("section 0 = %+v, want base 0 size 6", first)
	}
	wantFirst := []byte{0x00, 0x00, 0x38, 0x00, 0xAA, 0xBB}
	if !bytes.Equal(st.buf[st.offsets[0]:st.offsets[0]+first.Size], wantFirst) {
		t.Errorf("section 0 data = % X, want % X", st.buf[st.offsets[0]:st.offsets[0]+first.Size], wantFirst)
	}

	second := st.sections[1]
	if second.BaseAddress != 0x0100 || second.Size != 2 {
		t.Errorf("section 1 = %+v, want base 0x100 size 2", second)
	}

	if st.startSet {
		t.Errorf("start address = (set=%v), want false: S-record terminator entry address is not propagated", st.startSet)
	}
}

func TestParseSRecord24BitAddress(t *testing.T) {
	input := "S2060010001122B6\n" +
		"S804001000EB\n"
	src := newMemFileSourceString(input)
	st, err := parseSRecord(src, nil)
	if err != nil {
		t.Fatalf("parseSRecord() error = %v", err)
	}
	if len(st.sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(st.sections))
	}
	sec := st.sections[0]
	if sec.BaseAddress != 0x001000 || sec.Size != 2 {
		t.Errorf("section = %+v, want base 0x1000 size 2", sec)
	}
}

func TestParseSRecord32BitAddress(t *testing.T) {
	input := "S30700100000334471\n" +
		"S70500100000EA\n"
	src := newMemFileSourceString(input)
	st, err := parseSRecord(src, nil)
	if err != nil {
		t.Fatalf("parseSRecord() error = %v", err)
	}
	sec := st.sections[0]
	if sec.BaseAddress != 0x00100000 || sec.Size != 2 {
		t.Errorf("section = %+v, want base 0x00100000 size 2", sec)
	}
}

func TestParseSRecordBadChecksum(t *testing.T) {
	input := "S10700000000380000\n" +
		"S9030000FC\n"
	src := newMemFileSourceString(input)
	_, err := parseSRecord(src, nil)
	if err == nil {
		t.Fatal("expected a checksum error")
	}
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("expected KindChecksum, got %v", err)
	}
}

func TestParseSRecordMissingTerminator(t *testing.T) {
	input := "S107000000003800C0\n"
	src := newMemFileSourceString(input)
	_, err := parseSRecord(src, nil)
	if err == nil {
		t.Fatal("expected an error for a file with no terminator record")
	}
}

// TestParseSRecordTooManySections mirrors the IHEX 129-section boundary
// test: 130 S1 data records, each at a non-contiguous address, so every
// record past the first forces a new section (no 64k-wrap heuristic
// applies to S-records, per spec §4.3). The 129th split, which would
// store a 129th section, must fail with a format error.
func TestParseSRecordTooManySections(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 130; i++ {
		addr := uint16(2 * i)
		const count, data byte = 4, 0xAA // count = 2 addr bytes + 1 data byte + 1 checksum byte
		total := count + byte(addr>>8) + byte(addr) + data
		cksum := byte(0xFF) - total
		fmt.Fprintf(&sb, "S1%02X%04X%02X%02X\n", count, addr, data, cksum)
	}
	sb.WriteString("S9030000FC\n")

	src := newMemFileSourceString(sb.String())
	_, err := parseSRecord(src, nil)
	if err == nil {
		t.Fatal("expected a format error for exceeding the 128-section cap")
	}
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected KindFormat, got %v", err)
	}
}
