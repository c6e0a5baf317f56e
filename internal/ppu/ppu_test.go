package ppu

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"testing"

	"github.com/dmgcore/gbcore/internal/interrupts"
)

// TestSaveRestoreRoundTrip exercises State's GobEncode/GobDecode directly:
// paletteRAM's fields are all unexported, which is exactly the shape gob
// silently drops unless State routes through its wire mirror.
func TestSaveRestoreRoundTrip(t *testing.T) {
	irq := interrupts.New()
	p := New(irq, true)

	p.vram[0][0x10] = 0x55
	p.vram[1][0x20] = 0xAA
	p.vramBank = 1
	p.oam[4] = 0x77
	p.WriteRegister(0xFF68, 0x80) // BGPI: auto-increment, index 0
	p.WriteRegister(0xFF69, 0x3C) // BGPD byte 0
	p.WriteRegister(0xFF69, 0x7E) // BGPD byte 1, auto-increments index
	p.WriteRegister(0xFF6A, 0x81) // OBPI: auto-increment, index 1
	p.WriteRegister(0xFF6B, 0x11)
	p.ly = 90
	p.mode = ModePixelTransfer
	p.dot = 200
	p.windowLine = 12
	p.statLine = true

	want := p.Save()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&want); err != nil {
		t.Fatalf("gob encode: %v", err)
	}
	var got State
	if err := gob.NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("gob decode: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}

	other := New(irq, true)
	other.Restore(got)
	if !reflect.DeepEqual(p.Save(), other.Save()) {
		t.Fatal("Restore did not reproduce the original PPU state")
	}
	if other.ReadRegister(0xFF69) != p.ReadRegister(0xFF69) {
		t.Fatal("restored palette data byte does not match")
	}
}
