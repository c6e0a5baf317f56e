package mbc

import (
	"testing"
	"time"
)

func TestMBC1SaveRestore(t *testing.T) {
	rom := make([]byte, 0x4000*8)
	m := NewMBC1(rom, 0x2000, 8, true)
	m.WriteROM(0x0000, 0x0A) // RAM enable
	m.WriteROM(0x2000, 0x05) // bank1
	m.WriteROM(0x4000, 0x01) // bank2
	m.WriteROM(0x6000, 0x01) // mode

	saved := m.Save()
	fresh := NewMBC1(rom, 0x2000, 8, true)
	fresh.Restore(saved)
	if fresh.Save() != saved {
		t.Fatalf("got %+v, want %+v", fresh.Save(), saved)
	}
}

func TestMBC2SaveRestore(t *testing.T) {
	rom := make([]byte, 0x4000*4)
	m := NewMBC2(rom, 4, true)
	m.WriteROM(0x0000, 0x0A)
	m.WriteROM(0x2100, 0x03)

	saved := m.Save()
	fresh := NewMBC2(rom, 4, true)
	fresh.Restore(saved)
	if fresh.Save() != saved {
		t.Fatalf("got %+v, want %+v", fresh.Save(), saved)
	}
}

func TestMBC3SaveRestoreWithRTC(t *testing.T) {
	rom := make([]byte, 0x4000*8)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }
	m := NewMBC3(rom, 0x2000, 8, true, true, clock)
	m.WriteROM(0x0000, 0x0A)
	m.WriteROM(0x2000, 0x03)
	m.WriteROM(0x4000, 0x09) // select RTC minutes register
	m.WriteROM(0x6000, 0x00)
	m.WriteROM(0x6000, 0x01) // latch

	saved := m.Save()
	if !saved.HasRTC {
		t.Fatal("expected HasRTC to be true")
	}
	fresh := NewMBC3(rom, 0x2000, 8, true, true, clock)
	fresh.Restore(saved)
	if fresh.Save() != saved {
		t.Fatalf("got %+v, want %+v", fresh.Save(), saved)
	}
}

func TestMBC5SaveRestore(t *testing.T) {
	rom := make([]byte, 0x4000*16)
	m := NewMBC5(rom, 0x2000, 16, true)
	m.WriteROM(0x0000, 0x0A)
	m.WriteROM(0x2000, 0x0B)
	m.WriteROM(0x3000, 0x00)
	m.WriteROM(0x4000, 0x02)

	saved := m.Save()
	fresh := NewMBC5(rom, 0x2000, 16, true)
	fresh.Restore(saved)
	if fresh.Save() != saved {
		t.Fatalf("got %+v, want %+v", fresh.Save(), saved)
	}
}

func TestMBC7SaveRestore(t *testing.T) {
	rom := make([]byte, 0x4000*4)
	m := NewMBC7(rom, 4, true)
	m.WriteROM(0x0000, 0x0A)
	m.WriteROM(0x4000, 0x40)
	m.SetTilt(100, -200)
	m.WriteRAM(0x8010, 0xAA) // latch tilt

	saved := m.Save()
	fresh := NewMBC7(rom, 4, true)
	fresh.Restore(saved)
	if fresh.Save() != saved {
		t.Fatalf("got %+v, want %+v", fresh.Save(), saved)
	}
}
