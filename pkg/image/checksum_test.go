package image

import (
	"errors"
	"testing"
)

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint32
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0xffffffff,
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x4e08bfb4,
		},
		{
			name:     "four bytes",
			data:     []byte{0x01, 0x02, 0x03, 0x04},
			expected: 0x793737cd,
		},
		{
			name:     "all ones",
			data:     []byte{0xFF, 0xFF, 0xFF, 0xFF},
			expected: 0x00000000,
		},
		{
			name:     "ascii text",
			data:     []byte("hello world"),
			expected: 0xbb08ec87,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateChecksum(tt.data, nil, nil)
			if err != nil {
				t.Fatalf("CalculateChecksum() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("CalculateChecksum() = 0x%08X, want 0x%08X", got, tt.expected)
			}
		})
	}
}

func TestCalculateChecksumLargeBuffer(t *testing.T) {
	data := make([]byte, 100000)
	for i := range data {
		data[i] = byte(i)
	}

	var chunks int
	got, err := CalculateChecksum(data, func() { chunks++ }, nil)
	if err != nil {
		t.Fatalf("CalculateChecksum() error = %v", err)
	}
	if chunks == 0 {
		t.Errorf("expected keepAlive to be called at least once for a %d-byte buffer", len(data))
	}
	if got == 0xffffffff {
		t.Errorf("checksum of nonempty data should not equal the seed value")
	}
}

func TestCalculateChecksumInterrupted(t *testing.T) {
	data := make([]byte, 100000)
	_, err := CalculateChecksum(data, nil, func() bool { return true })
	if err == nil {
		t.Fatal("expected an error when shutdown is pending")
	}
	var imgErr *Error
	if !errors.As(err, &imgErr) || imgErr.Kind != KindInterrupted {
		t.Errorf("expected KindInterrupted, got %v", err)
	}
}
