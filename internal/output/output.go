// Package output writes the final blocklist to its install destination.
package output

import (
	"archive/zip"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
)

// Compression selects the in-place compression applied to the installed
// file.
type Compression string

const (
	CompressNone  Compression = "none"
	CompressGzip  Compression = "gzip"
	CompressBzip2 Compression = "bzip2"
	CompressZip   Compression = "zip"
)

// ParseCompression resolves a configuration value; empty means none.
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressNone:
		return CompressNone, nil
	case CompressGzip:
		return CompressGzip, nil
	case CompressBzip2:
		return CompressBzip2, nil
	case CompressZip:
		return CompressZip, nil
	}
	return "", fmt.Errorf("unknown compression type %q", s)
}

// Install writes lines to path, one per line, compressed as requested. The
// write is atomic: content goes to a temp file in the target directory first
// and is renamed over the destination.
func Install(lines []string, path string, comp Compression) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create install dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ipfilter-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeAll(tmp, filepath.Base(path), lines, comp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	return nil
}

func writeAll(f *os.File, name string, lines []string, comp Compression) error {
	w, closeWriter, err := wrapWriter(f, name, comp)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := closeWriter(); err != nil {
		return fmt.Errorf("finish %s stream: %w", comp, err)
	}
	return f.Sync()
}

// wrapWriter layers the requested compressor over f. The returned close
// function finishes the compressed stream without closing f itself.
func wrapWriter(f *os.File, name string, comp Compression) (io.Writer, func() error, error) {
	switch comp {
	case CompressNone:
		return f, func() error { return nil }, nil
	case CompressGzip:
		zw := gzip.NewWriter(f)
		return zw, zw.Close, nil
	case CompressBzip2:
		bw, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, nil, fmt.Errorf("init bzip2 writer: %w", err)
		}
		return bw, bw.Close, nil
	case CompressZip:
		zw := zip.NewWriter(f)
		entry, err := zw.Create(name)
		if err != nil {
			return nil, nil, fmt.Errorf("create zip entry: %w", err)
		}
		return entry, zw.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown compression type %q", comp)
}
