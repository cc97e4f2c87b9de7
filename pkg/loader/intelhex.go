package loader

import (
	"fmt"

	"github.com/foenixretro/fwimage/pkg/image"
)

// IntelHexLoader loads Intel HEX format files by decoding them with the
// image package, which enforces the record checksums and the extended
// segment/linear addressing modes that the old regexp-based parser skipped.
type IntelHexLoader struct {
	BaseLoader
	img *image.Image
}

// NewIntelHexLoader creates a new Intel HEX loader
func NewIntelHexLoader() *IntelHexLoader {
	return &IntelHexLoader{}
}

// Open opens an Intel HEX file
func (l *IntelHexLoader) Open(filename string) error {
	img, err := image.Open(filename, image.OpenOptions{TypeHint: "ihex"})
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	l.img = img
	return nil
}

// Close releases the decoded image
func (l *IntelHexLoader) Close() error {
	if l.img == nil {
		return nil
	}
	err := l.img.Close()
	l.img = nil
	return err
}

// Process walks every section the Intel HEX file decoded into and hands
// its bytes to the write handler at the section's load address.
func (l *IntelHexLoader) Process() error {
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
