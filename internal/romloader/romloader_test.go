package romloader

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func blankROM() []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x134:], "TESTROM")
	return rom
}

func TestOpenBareROM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.gb")
	if err := os.WriteFile(path, blankROM(), 0o644); err != nil {
		t.Fatal(err)
	}

	rom, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(rom.Data) != 0x8000 {
		t.Fatalf("got %d bytes, want 0x8000", len(rom.Data))
	}
	if rom.Hash == 0 {
		t.Fatalf("expected a non-zero content hash")
	}
}

func TestOpenZipArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "game.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("game.gb")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(blankROM()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(zipPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	rom, err := Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(rom.Data) != 0x8000 {
		t.Fatalf("got %d bytes, want 0x8000", len(rom.Data))
	}
}

func TestOpenTooSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.gb")
	if err := os.WriteFile(path, []byte{0, 1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected an error for a file too small to hold a header")
	}
}

func TestSidecarsFor(t *testing.T) {
	s := SidecarsFor("/roms/Tetris (World).gb")
	want := Sidecars{
		SRAM:   "/roms/Tetris (World).srm",
		RTC:    "/roms/Tetris (World).rtc",
		EEPROM: "/roms/Tetris (World).eeprom",
		State:  "/roms/Tetris (World).sav",
	}
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
}

func TestCompressedStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slot1.sav")
	original := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 1000)

	if err := WriteCompressedState(path, original); err != nil {
		t.Fatalf("WriteCompressedState: %v", err)
	}
	got, err := ReadCompressedState(path)
	if err != nil {
		t.Fatalf("ReadCompressedState: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatal("round trip did not preserve the original data")
	}
}
