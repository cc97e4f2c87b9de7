package loader

import (
	"fmt"

	"github.com/foenixretro/fwimage/pkg/image"
)

// SRecLoader loads Motorola SREC format files by decoding them with the
// image package, which verifies the one's-complement checksum the old
// regexp-based parser never checked.
type SRecLoader struct {
	BaseLoader
	img *image.Image
}

// NewSRecLoader creates a new SREC loader
func NewSRecLoader() *SRecLoader {
	return &SRecLoader{}
}

// Open opens a Motorola SREC file
func (l *SRecLoader) Open(filename string) error {
	img, err := image.Open(filename, image.OpenOptions{TypeHint: "s19"})
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	l.img = img
	return nil
}

// Close releases the decoded image
func (l *SRecLoader) Close() error {
	if l.img == nil {
		return nil
	}
	err := l.img.Close()
	l.img = nil
	return err
}

// Process walks every section the SREC file decoded into and hands its
// bytes to the write handler at the section's load address.
func (l *SRecLoader) Process() error {
	if l.img == nil {
		return fmt.Errorf("file not open")
	}
	if l.handler == nil {
		return fmt.Errorf("handler not set")
	}

	for i, sec := range l.img.Sections {
		data := make([]byte, sec.Size)
		if _, err := l.img.ReadSection(i, 0, sec.Size, data); err != nil {
			return fmt.Errorf("failed to read section %d: %w", i, err)
		}
		if err := l.handler(uint32(sec.BaseAddress), data); err != nil {
			return fmt.Errorf("handler failed for section %d: %w", i, err)
		}
	}

	return nil
}
