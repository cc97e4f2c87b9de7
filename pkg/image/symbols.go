package image

import "debug/elf"

// ResolveSymbols resolves each of names against an open ELF32 image,
// first against section names (needed by CMSIS-style flash
// algorithms that are addressed by the section they link into) and
// then against the symbol table, which takes precedence whenever it
// defines a matching, non-undefined symbol.
func (img *Image) ResolveSymbols(names []string) ([]Symbol, error) {
	if img.Type != TypeELF {
		return nil, formatErrorf("symbol resolution is supported for ELF images only")
	}
	b, ok := img.backing.(*elfBacking)
	if !ok || b.file == nil {
		return nil, formatErrorf("image has no ELF backing")
	}
	if b.file.Class != elf.ELFCLASS32 {
		return nil, formatErrorf("symbol resolution is supported for ELF32 images only")
	}

	resolved := make(map[string]uint32, len(names))

	for _, sec := range b.file.Sections {
		for _, name := range names {
			if sec.Name == name {
				resolved[name] = uint32(sec.Addr)
			}
		}
	}

	syms, err := b.file.Symbols()
	if err != nil {
		return nil, formatErrorf("no symbol table found in ELF file: %v", err)
	}

	for _, sym := range syms {
		if sym.Section == elf.SHN_UNDEF {
			continue
		}
		for _, name := range names {
			if sym.Name == name {
				resolved[name] = uint32(sym.Value)
			}
		}
	}

	out := make([]Symbol, 0, len(names))
	for _, name := range names {
		if off, ok := resolved[name]; ok {
			out = append(out, Symbol{Name: name, Offset: off})
		}
	}
	return out, nil
}
