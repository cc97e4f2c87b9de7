package image

import (
	"bytes"
	"testing"
)

func TestMemoryBackingReadAcrossPages(t *testing.T) {
	target := newFakeTarget()
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	target.set(0x1000, data)

	b := newMemoryBacking(target, 64)
	out := make([]byte, 200)
	n, err := b.readSection(0, 0x1010, 200, out)
	if err != nil {
		t.Fatalf("readSection() error = %v", err)
	}
	if n != 200 {
		t.Fatalf("read %d bytes, want 200", n)
	}
	want := make([]byte, 200)
	copy(want, data[0x10:0x10+200])
	if !bytes.Equal(out, want) {
		t.Errorf("data mismatch")
	}
	if target.readCount == 0 {
		t.Errorf("expected at least one target read")
	}
}

func TestMemoryBackingReusesCache(t *testing.T) {
	target := newFakeTarget()
	target.set(0, bytes.Repeat([]byte{0x42}, 64))

	b := newMemoryBacking(target, 64)
	out := make([]byte, 4)

	if _, err := b.readSection(0, 0, 4, out); err != nil {
		t.Fatalf("readSection() error = %v", err)
	}
	firstCount := target.readCount

	if _, err := b.readSection(0, 4, 4, out); err != nil {
		t.Fatalf("readSection() error = %v", err)
	}
	if target.readCount != firstCount {
		t.Errorf("second read within the same page should reuse the cache, got %d target reads after %d",
			target.readCount, firstCount)
	}
}

func TestMemoryBackingTargetUnavailable(t *testing.T) {
	target := newFakeTarget()
	target.failSet = true
	target.failAt = 0

	b := newMemoryBacking(target, 64)
	out := make([]byte, 4)
	_, err := b.readSection(0, 0, 4, out)
	if err == nil {
		t.Fatal("expected an error when the target read fails")
	}
	imgErr, ok := err.(*Error)
	if !ok || imgErr.Kind != KindUnavailable {
		t.Errorf("expected KindUnavailable, got %v", err)
	}
}
