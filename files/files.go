// Package files moves serialized data to and from disk: it reads text through
// transparent decompression, writes with a compression chosen by file suffix,
// and keeps numbered backups of files before they are overwritten.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/amterp/compactjson"
	"github.com/amterp/compactjson/pydata"
)

// ErrUnreadableSource is returned when a source cannot be opened, cannot be
// decompressed by the detected codec, or is not UTF-8 text.
var ErrUnreadableSource = errors.New("unreadable source")

// BackupDir is the name of the directory, next to the original file, that
// holds backups.
const BackupDir = ".backup"

// ReadText returns the decoded text of the file at path. xz, bzip2, zstd and
// gzip streams are decompressed transparently; anything else is read as is.
func ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("files: cannot read %s: %w: %v", path, ErrUnreadableSource, err)
	}
	defer f.Close()
	text, _, err := ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("files: cannot read %s: %w", path, err)
	}
	return text, nil
}

// ReadAll reads r to the end and returns its decoded text together with the
// compression it was stored with.
func ReadAll(r io.Reader) (string, Compression, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", None, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	data, kind, err := Decompress(raw)
	if err != nil {
		return "", kind, err
	}
	if !utf8.Valid(data) {
		return "", kind, fmt.Errorf("%w: not UTF-8 text", ErrUnreadableSource)
	}
	return string(data), kind, nil
}

// WriteBinary writes data to path, compressed according to the path suffix
// (.xz, .bz2, .zst, .gz) or as is for any other suffix.
func WriteBinary(path string, data []byte) error {
	out, err := Compress(data, CompressionForPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("files: cannot write %s: %w", path, err)
	}
	return nil
}

// Backup copies an existing file into the BackupDir next to it, named
// <stem>.~NNN~<suffix> with the first unused version number, starting at 001.
// Existing backups are never overwritten. It returns the backup path, or ""
// if path does not exist.
func Backup(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("files: backup %s: %w", path, err)
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("files: backup %s: %w", path, err)
	}
	real, err = filepath.Abs(real)
	if err != nil {
		return "", fmt.Errorf("files: backup %s: %w", path, err)
	}
	dir := filepath.Join(filepath.Dir(real), BackupDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("files: backup %s: %w", path, err)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("files: backup %s: %w", path, err)
	}
	defer src.Close()

	stem, suffix := splitName(filepath.Base(path))
	for version := 1; ; version++ {
		name := filepath.Join(dir, fmt.Sprintf("%s.~%03d~%s", stem, version, suffix))
		// O_EXCL makes claiming a version number atomic.
		dst, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("files: backup %s: %w", path, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return "", fmt.Errorf("files: backup %s: %w", path, err)
		}
		if err := dst.Close(); err != nil {
			return "", fmt.Errorf("files: backup %s: %w", path, err)
		}
		return name, nil
	}
}

// splitName splits a file name into stem and final suffix; a leading dot
// does not start a suffix.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == "." || ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// ReadJSON reads and parses a (possibly compressed) JSON file.
func ReadJSON(path string) (any, error) {
	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}
	v, err := compactjson.Loads([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("files: %s: %w", path, err)
	}
	return v, nil
}

// ReadPyData reads and parses a (possibly compressed) Python literal file.
func ReadPyData(path string) (any, error) {
	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}
	v, err := pydata.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("files: %s: %w", path, err)
	}
	return v, nil
}

// WriteJSON serializes v with opts and writes it, followed by a newline, to
// path. When backup is set an existing file is backed up first; the backup
// path (or "") is returned. Nothing is written if serialization fails.
func WriteJSON(path string, v any, opts compactjson.Options, backup bool) (string, error) {
	out, err := compactjson.Dumps(v, opts)
	if err != nil {
		return "", err
	}
	var saved string
	if backup {
		if saved, err = Backup(path); err != nil {
			return "", err
		}
	}
	return saved, WriteBinary(path, []byte(out+"\n"))
}
