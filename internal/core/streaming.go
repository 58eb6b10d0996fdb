package core

// streaming.go provides the reader chain every export passes through
// before it is parsed:
//
//   - bomReader drops a leading UTF-8 byte order mark
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader records how many bytes were consumed
//
// Use WrapForStreaming to apply them in order.

import (
	"io"
	"unicode/utf8"
)

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// bomReader removes a UTF-8 BOM from the start of the stream.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte // bytes read while checking that were not a BOM
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		switch {
		case n == 3 && buf == utf8BOM:
		case n > 0:
			b.head = append([]byte(nil), buf[:n]...)
		}
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		if err != nil && len(b.head) == 0 {
			return 0, io.EOF
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces bytes that are not valid UTF-8 with '?'. A
// multi-byte sequence split across reads is held back until it completes.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	off := copy(p, s.pending)
	s.pending = append(s.pending[:0], s.pending[off:]...)
	if len(s.pending) > 0 {
		return off, nil
	}

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	data := p[:n]
	if asciiOnly(data) {
		return n, err
	}
	return s.sanitize(data, err == io.EOF), err
}

func asciiOnly(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the length of the result.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(data); {
		if !atEOF && !utf8.FullRune(data[r:]) {
			s.pending = append(s.pending, data[r:]...)
			break
		}
		c, size := utf8.DecodeRune(data[r:])
		if c == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	r     io.Reader
	Bytes int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.Bytes += int64(n)
	return n, err
}

// WrapForStreaming strips a BOM, sanitizes UTF-8 and counts bytes. The BOM
// has to go first or the sanitizer would pass it through.
func WrapForStreaming(r io.Reader) *CountingReader {
	return NewCountingReader(newUTF8Sanitizer(newBOMReader(r)))
}
