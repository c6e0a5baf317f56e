// Package romloader finds a Game Boy ROM image inside whatever file a host
// was handed — a bare .gb/.gbc, or one wrapped in a .zip/.7z/.gz/.xz
// archive — derives a content hash identifying the ROM image, and names a
// cartridge's sibling save files after the ROM's path.
package romloader

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// LoadError is returned when a file cannot be read or no ROM-like entry
// can be found inside it.
type LoadError struct {
	msg string
}

func (e *LoadError) Error() string { return e.msg }

// ROM is a loaded image together with its content hash, which identifies
// the image (e.g. for tagging save states).
type ROM struct {
	Data []byte
	Hash uint64
}

// Open reads path, transparently decompressing it if it is a recognized
// archive or single-file compression format, and returns the first
// .gb/.gbc entry found (or the raw bytes, for a bare ROM or one already
// extracted).
func Open(path string) (*ROM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{err.Error()}
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, &LoadError{err.Error()}
	}

	data, err := extract(path, raw)
	if err != nil {
		return nil, &LoadError{err.Error()}
	}
	if len(data) < 0x150 {
		return nil, &LoadError{fmt.Sprintf("romloader: %s does not contain a Game Boy ROM image", path)}
	}

	return &ROM{Data: data, Hash: xxhash.Sum64(data)}, nil
}

// extract dispatches on file extension to whichever decompressor matches,
// returning raw unchanged for a bare .gb/.gbc/.bin or any extension none
// of the supported archive formats recognize.
func extract(path string, raw []byte) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gb", ".gbc", ".bin":
		return raw, nil
	case ".gz":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case ".xz":
		r, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case ".lz4":
		return io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	case ".zip":
		return firstROMInZip(raw)
	case ".7z":
		return firstROMIn7z(raw)
	default:
		return raw, nil
	}
}

// pickROMEntry returns the index of the first name ending in .gb or .gbc,
// or 0 if the archive contains exactly one entry and none matches (a
// single-ROM archive is assumed to hold its ROM regardless of name).
func pickROMEntry(names []string) (int, error) {
	for i, n := range names {
		lower := strings.ToLower(n)
		if strings.HasSuffix(lower, ".gb") || strings.HasSuffix(lower, ".gbc") {
			return i, nil
		}
	}
	if len(names) == 1 {
		return 0, nil
	}
	return 0, fmt.Errorf("romloader: archive contains %d entries and none look like a Game Boy ROM", len(names))
}

func firstROMInZip(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	idx, err := pickROMEntry(names)
	if err != nil {
		return nil, err
	}
	rc, err := zr.File[idx].Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func firstROMIn7z(raw []byte) ([]byte, error) {
	zr, err := sevenzip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	idx, err := pickROMEntry(names)
	if err != nil {
		return nil, err
	}
	rc, err := zr.File[idx].Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Sidecars names the save-data files that live alongside a ROM, all
// derived from its path with the extension replaced, so a renamed ROM
// does not find the files saved under its old name: the battery SRAM image, the MBC3 RTC snapshot, the MBC7 EEPROM
// image, and a default save-state slot.
type Sidecars struct {
	SRAM   string
	RTC    string
	EEPROM string
	State  string
}

// SidecarsFor derives the sibling save-file paths for a ROM loaded from
// romPath.
func SidecarsFor(romPath string) Sidecars {
	base := strings.TrimSuffix(romPath, filepath.Ext(romPath))
	return Sidecars{
		SRAM:   base + ".srm",
		RTC:    base + ".rtc",
		EEPROM: base + ".eeprom",
		State:  base + ".sav",
	}
}

// WriteCompressedState writes data (a gameboy.Core.SaveState snapshot) to
// path flate-compressed, for hosts that opt into --compress-saves.
func WriteCompressedState(path string, data []byte) error {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadCompressedState reverses WriteCompressedState.
func ReadCompressedState(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	return io.ReadAll(r)
}
