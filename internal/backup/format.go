// Package backup reads and writes portable export files of a level set.
//
// A file is one JSON header line followed by the gzip-compressed JSON
// payload. The header carries the sha256 of the compressed bytes so a file
// can be verified without decompressing it.
package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/pneumatic/internal/document"
)

// FormatVersion is the only file version written and read.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of decompressed payload data (16MB).
const MaxDecompressedSize = 16 * 1024 * 1024

// Header is the plain-text first line of an export file.
type Header struct {
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	Checksum   string            `json:"checksum"`
	LevelCount int               `json:"level_count"`
	Compressed bool              `json:"compressed"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// File is the payload of an export: a saved level set document.
type File struct {
	CreatedAt time.Time         `json:"created_at"`
	Slot      string            `json:"slot,omitempty"`
	Set       document.Doc      `json:"set"`
	Metadata  map[string]string `json:"-"`
}

// LevelCount returns how many level entries the payload holds.
func (f *File) LevelCount() int {
	return len(document.GetList(f.Set, "levels"))
}

// Write writes f to path as a header line plus gzip-compressed payload,
// creating the directory if needed.
func Write(path string, f *File) error {
	if f == nil || f.Set == nil {
		return fmt.Errorf("export has no level set")
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	if len(payload) > MaxDecompressedSize {
		return fmt.Errorf("payload of %d bytes exceeds maximum size of %d bytes", len(payload), MaxDecompressedSize)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:    FormatVersion,
		CreatedAt:  f.CreatedAt,
		Checksum:   checksum(compressed.Bytes()),
		LevelCount: f.LevelCount(),
		Compressed: true,
		Metadata:   f.Metadata,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return out.Close()
}

// Read reads an export file, verifies the checksum and decompresses the payload.
func Read(path string) (*File, error) {
	header, compressed, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	if err := verify(header, compressed); err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var f File
	if err := json.Unmarshal(decompressed, &f); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}
	if f.Set == nil {
		return nil, fmt.Errorf("payload has no level set")
	}
	f.Metadata = header.Metadata
	return &f, nil
}

// ReadHeader reads only the header line without decompressing.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Verify checks the integrity of an export file without decompressing it.
func Verify(path string) error {
	header, compressed, err := readRaw(path)
	if err != nil {
		return err
	}
	return verify(header, compressed)
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported export version %d (want %d)", header.Version, FormatVersion)
	}
	if !header.Compressed {
		return nil, fmt.Errorf("uncompressed exports are not supported")
	}
	return &header, nil
}

func readRaw(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	return header, compressed, nil
}

func verify(header *Header, compressed []byte) error {
	if actual := checksum(compressed); actual != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
