package image

import (
	"bufio"
	"bytes"
	"errors"
)

var errNotAvailable = errors.New("target unavailable")

// memFileSource is an in-memory FileSource used by tests so the parser
// suites don't need real files on disk.
type memFileSource struct {
	buf    []byte
	pos    int64
	r      *bufio.Reader
	eof    bool
	closed bool
}

func newMemFileSource(content []byte) *memFileSource {
	return &memFileSource{buf: content, r: bufio.NewReader(bytes.NewReader(content))}
}

func newMemFileSourceString(content string) *memFileSource {
	return newMemFileSource([]byte(content))
}

func (m *memFileSource) Size() (int64, error) {
	return int64(len(m.buf)), nil
}

func (m *memFileSource) Seek(offset int64) error {
	m.pos = offset
	m.r = bufio.NewReader(bytes.NewReader(m.buf[offset:]))
	m.eof = false
	return nil
}

func (m *memFileSource) Read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		b, err := m.r.ReadByte()
		if err != nil {
			m.eof = true
			break
		}
		out = append(out, b)
	}
	m.pos += int64(len(out))
	return out, nil
}

func (m *memFileSource) ReadLine(maxLen int) (string, bool, error) {
	line, err := m.r.ReadString('\n')
	if err != nil {
		m.eof = true
		if line == "" {
			return "", false, nil
		}
	}
	if len(line) > maxLen {
		line = line[:maxLen]
	}
	return line, true, nil
}

func (m *memFileSource) EOF() bool {
	return m.eof
}

func (m *memFileSource) Close() error {
	m.closed = true
	return nil
}

// fakeTarget is a Target backed by a flat in-memory address space, for
// exercising the Memory image's page cache.
type fakeTarget struct {
	mem       map[uint32]byte
	readCount int
	failAt    uint32
	failSet   bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{mem: make(map[uint32]byte)}
}

func (f *fakeTarget) set(addr uint32, data []byte) {
	for i, b := range data {
		f.mem[addr+uint32(i)] = b
	}
}

func (f *fakeTarget) ReadBuffer(address uint32, length uint32) ([]byte, error) {
	f.readCount++
	if f.failSet && address == f.failAt {
		return nil, errNotAvailable
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = f.mem[address+uint32(i)]
	}
	return out, nil
}
