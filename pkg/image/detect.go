package image

import "io"

var elfMagic = [4]byte{0x7F, 'E', 'L', 'F'}

// identifyType resolves the type hint string, or autodetects from the
// file's magic bytes when hint is empty.
func identifyType(url string, hint string) (Type, error) {
	if hint != "" {
		switch hint {
		case "bin":
			return TypeBinary, nil
		case "ihex":
			return TypeIHex, nil
		case "elf":
			return TypeELF, nil
		case "mem":
			return TypeMemory, nil
		case "s19":
			return TypeSRecord, nil
		case "build":
			return TypeBuilder, nil
		default:
			return 0, unknownTypeErrorf(
				"unknown image type: %s, use one of: bin, ihex, elf, mem, s19, build", hint)
		}
	}
	return autodetectType(url)
}

// autodetectType reads up to 9 bytes of url and classifies the container
// format from its magic bytes, per spec §4.1.
func autodetectType(url string) (Type, error) {
	src, err := openFile(url)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	buf, err := src.Read(9)
	if err != nil {
		return 0, err
	}
	if len(buf) != 9 {
		return TypeBinary, nil
	}

	if buf[0] == elfMagic[0] && buf[1] == elfMagic[1] && buf[2] == elfMagic[2] && buf[3] == elfMagic[3] {
		return TypeELF, nil
	}

	if buf[0] == ':' &&
		isHexDigit(buf[1]) && isHexDigit(buf[2]) && isHexDigit(buf[3]) &&
		isHexDigit(buf[4]) && isHexDigit(buf[5]) && isHexDigit(buf[6]) &&
		buf[7] == '0' && buf[8] >= '0' && buf[8] < '6' {
		return TypeIHex, nil
	}

	if buf[0] == 'S' &&
		isHexDigit(buf[1]) && isHexDigit(buf[2]) && isHexDigit(buf[3]) &&
		buf[1] >= '0' && buf[1] < '9' {
		return TypeSRecord, nil
	}

	return TypeBinary, nil
}

// readExact reads exactly n bytes from src at the current position,
// failing if fewer are available.
func readExact(src FileSource, n int) ([]byte, error) {
	buf, err := src.Read(n)
	if err != nil {
		return nil, err
	}
	if len(buf) != n {
		return nil, fileIOErrorf("short read: got %d bytes, want %d: %w", len(buf), n, io.ErrUnexpectedEOF)
	}
	return buf, nil
}
