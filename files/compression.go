package files

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies a stream compression format.
type Compression int

const (
	None Compression = iota
	XZ
	Bzip2
	Zstd
	Gzip
)

func (c Compression) String() string {
	switch c {
	case XZ:
		return "xz"
	case Bzip2:
		return "bzip2"
	case Zstd:
		return "zstd"
	case Gzip:
		return "gzip"
	default:
		return "none"
	}
}

// codec describes one compression format: how to recognize, read and write it.
type codec struct {
	kind   Compression
	suffix string
	magic  []byte
	reader func(io.Reader) (io.ReadCloser, error)
	writer func(io.Writer) (io.WriteCloser, error)
}

// codecs is the detection order used when reading.
var codecs = []codec{
	{
		kind:   XZ,
		suffix: ".xz",
		magic:  []byte{0xFD, '7', 'z', 'X', 'Z', 0x00},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
	},
	{
		kind:   Bzip2,
		suffix: ".bz2",
		magic:  []byte("BZh"),
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return bzip2.NewReader(r, nil)
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return bzip2.NewWriter(w, nil)
		},
	},
	{
		kind:   Zstd,
		suffix: ".zst",
		magic:  []byte{0x28, 0xB5, 0x2F, 0xFD},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
	},
	{
		kind:   Gzip,
		suffix: ".gz",
		magic:  []byte{0x1F, 0x8B},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
	},
}

// CompressionForPath picks the compression used when writing path, by suffix.
func CompressionForPath(path string) Compression {
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range codecs {
		if c.suffix == ext {
			return c.kind
		}
	}
	return None
}

// TrimCompressionSuffix removes a recognized compression suffix from path.
func TrimCompressionSuffix(path string) string {
	if CompressionForPath(path) == None {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Detect returns the compression format data starts with.
func Detect(data []byte) Compression {
	for _, c := range codecs {
		if bytes.HasPrefix(data, c.magic) {
			return c.kind
		}
	}
	return None
}

// Decompress returns the decoded contents of data, detecting the format from
// its leading bytes. Uncompressed data is returned unchanged, as is text that
// merely starts with the bzip2 magic.
func Decompress(data []byte) ([]byte, Compression, error) {
	kind := Detect(data)
	if kind == None {
		return data, None, nil
	}
	out, err := decode(codecFor(kind), data)
	if err != nil {
		if kind == Bzip2 {
			// "BZh" is also ordinary text, so a failed bzip2 stream is read as plain.
			return data, None, nil
		}
		return nil, kind, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, kind, err)
	}
	return out, kind, nil
}

// decode runs data through the reader of c.
func decode(c codec, data []byte) ([]byte, error) {
	r, err := c.reader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Compress encodes data with the given format.
func Compress(data []byte, kind Compression) ([]byte, error) {
	if kind == None {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := codecFor(kind).writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("files: %s writer: %w", kind, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("files: %s write: %w", kind, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("files: %s close: %w", kind, err)
	}
	return buf.Bytes(), nil
}

// codecFor returns the codec table entry for kind.
func codecFor(kind Compression) codec {
	for _, c := range codecs {
		if c.kind == kind {
			return c
		}
	}
	panic(fmt.Sprintf("files: no codec for %s", kind))
}
