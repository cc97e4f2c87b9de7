package image

// memoryBacking serves a Memory image's single, address-space-wide
// section by reading through a live Target, one cache page (cacheSize
// bytes, DefaultMemoryCacheSize unless the caller sets another) at a time. Pages are cached one at a time (not a full LRU set) —
// this mirrors the single-page cache the original loader design used,
// which is sufficient since reads within one section are overwhelmingly
// sequential.
type memoryBacking struct {
	target    Target
	cacheSize uint32
	cache     []byte
	cacheAddr uint32
	haveCache bool
}

func newMemoryBacking(target Target, cacheSize uint32) *memoryBacking {
	if cacheSize == 0 {
		cacheSize = DefaultMemoryCacheSize
	}
	return &memoryBacking{target: target, cacheSize: cacheSize}
}

func (b *memoryBacking) readSection(sec int, offset, length uint32, out []byte) (int, error) {
	address := offset
	var read uint32

	for read < length {
		if !b.haveCache || address < b.cacheAddr || address >= b.cacheAddr+b.cacheSize {
			pageAddr := address &^ (b.cacheSize - 1)
			page, err := b.target.ReadBuffer(pageAddr, b.cacheSize)
			if err != nil {
				b.haveCache = false
				b.cache = nil
				return int(read), &Error{Kind: KindUnavailable, Msg: "target memory temporarily unavailable", Err: err}
			}
			b.cache = page
			b.cacheAddr = pageAddr
			b.haveCache = true
		}

		inCache := (b.cacheAddr + b.cacheSize) - address
		want := length - read
		if inCache > want {
			inCache = want
		}

		off := address - b.cacheAddr
		copy(out[read:read+inCache], b.cache[off:off+inCache])

		read += inCache
		address += inCache
	}

	return int(read), nil
}

func (b *memoryBacking) close() error {
	b.cache = nil
	b.haveCache = false
	return nil
}
