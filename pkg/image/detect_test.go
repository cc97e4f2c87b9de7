package image

import (
	"os"
	"testing"
)

func TestIdentifyTypeHint(t *testing.T) {
	tests := []struct {
		hint string
		want Type
	}{
		{"bin", TypeBinary},
		{"ihex", TypeIHex},
		{"elf", TypeELF},
		{"mem", TypeMemory},
		{"s19", TypeSRecord},
		{"build", TypeBuilder},
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got, err := identifyType("unused", tt.hint)
			if err != nil {
				t.Fatalf("identifyType() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("identifyType(%q) = %v, want %v", tt.hint, got, tt.want)
			}
		})
	}
}

func TestIdentifyTypeUnknownHint(t *testing.T) {
	_, err := identifyType("unused", "nonsense")
	if err == nil {
		t.Fatal("expected an error for an unrecognized type hint")
	}
}

func TestAutodetectType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    Type
	}{
		{"elf magic", []byte{0x7F, 'E', 'L', 'F', 1, 1, 1, 0, 0}, TypeELF},
		{"ihex data record", []byte(":10000000"), TypeIHex},
		{"srecord data", []byte("S10900000"), TypeSRecord},
		{"too short", []byte{0x01, 0x02}, TypeBinary},
		{"plain binary", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, TypeBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := dir + "/image.bin"
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatalf("os.WriteFile() error = %v", err)
			}
			got, err := autodetectType(path)
			if err != nil {
				t.Fatalf("autodetectType() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("autodetectType() = %v, want %v", got, tt.want)
			}
		})
	}
}
