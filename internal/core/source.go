package core

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Stdin is the input path that reads standard input.
const Stdin = "-"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ErrUnknownEncoding is returned for a charset name Decode does not know.
var ErrUnknownEncoding = errors.New("encoding error: unknown charset")

// charsets maps accepted names to decoders. UTF-8 needs no decoder.
var charsets = map[string]encoding.Encoding{
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"macintosh":    charmap.Macintosh,
	"mac-roman":    charmap.Macintosh,
}

// Charset returns the decoder for name. The empty name and any spelling of
// UTF-8 return nil.
func Charset(name string) (encoding.Encoding, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "utf8", "utf-8":
		return nil, nil
	default:
		enc, ok := charsets[n]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownEncoding, name)
		}
		return enc, nil
	}
}

// Source is one opened export ready for parsing.
type Source struct {
	*CountingReader
	closers []func() error
}

// Close releases the decompressor and the underlying file, if any.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path for parsing. Stdin reads standard input.
func Open(path, charset string) (*Source, error) {
	if path == Stdin {
		return Decode(os.Stdin, charset)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := Decode(f, charset)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.closers = append([]func() error{f.Close}, src.closers...)
	return src, nil
}

// Decode prepares r for parsing: gzip and zstd streams are detected from
// their magic bytes and decompressed, a legacy charset is decoded to UTF-8,
// and the result goes through WrapForStreaming. Closing the Source does not
// close r.
func Decode(r io.Reader, charset string) (*Source, error) {
	enc, err := Charset(charset)
	if err != nil {
		return nil, err
	}

	src := &Source{}
	br := bufio.NewReader(r)
	magic, _ := br.Peek(len(zstdMagic))

	var rd io.Reader = br
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip stream: %w", err)
		}
		rd = gz
		src.closers = append(src.closers, gz.Close)
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd stream: %w", err)
		}
		rd = zr
		src.closers = append(src.closers, func() error { zr.Close(); return nil })
	}

	if enc != nil {
		rd = enc.NewDecoder().Reader(rd)
	}
	src.CountingReader = WrapForStreaming(rd)
	return src, nil
}
