// Package cartridge parses Game Boy ROM images and constructs the right
// memory bank controller for them, wiring in battery-backed save RAM,
// MBC3's real-time clock, and MBC7's EEPROM + accelerometer as needed.
package cartridge

import (
	"encoding/gob"
	"fmt"

	"github.com/dmgcore/gbcore/internal/cartridge/mbc"
)

// Every concrete type that can appear behind MapperState.State must be
// registered with gob up front, since the field's static type is the
// interface{} itself.
func init() {
	gob.Register(mbc.MBC1State{})
	gob.Register(mbc.MBC2State{})
	gob.Register(mbc.MBC3State{})
	gob.Register(mbc.MBC5State{})
	gob.Register(mbc.MBC7State{})
}

// LoadError is returned by Load when a ROM image cannot be parsed or uses
// an unsupported mapper. It is always safe to surface directly to a host
// UI.
type LoadError struct {
	msg string
}

func (e *LoadError) Error() string { return e.msg }

// Cartridge owns the raw ROM image, its parsed header, and the mapper
// instance that virtualizes the CPU's address space over it.
type Cartridge struct {
	Header Header
	rom    []byte
	Mapper mbc.Mapper
}

// Load parses rom and constructs the appropriate mapper. rtcClock, if
// non-nil, is used as the wall clock for an MBC3 RTC (nil selects
// time.Now); it is ignored for cartridges without an RTC.
func Load(rom []byte, rtcClock mbc.Clock) (*Cartridge, error) {
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, &LoadError{err.Error()}
	}

	m, err := newMapper(rom, header, rtcClock)
	if err != nil {
		return nil, &LoadError{err.Error()}
	}

	return &Cartridge{Header: header, rom: rom, Mapper: m}, nil
}

func newMapper(rom []byte, h Header, rtcClock mbc.Clock) (mbc.Mapper, error) {
	switch h.CartridgeType {
	case TypeROMOnly, TypeROMRAM, TypeROMRAMBattery:
		return mbc.NewNone(rom, h.RAMSize), nil
	case TypeMBC1, TypeMBC1RAM, TypeMBC1RAMBattery:
		return mbc.NewMBC1(rom, h.RAMSize, h.ROMBanks, h.CartridgeType == TypeMBC1RAMBattery), nil
	case TypeMBC2, TypeMBC2Battery:
		return mbc.NewMBC2(rom, h.ROMBanks, h.CartridgeType == TypeMBC2Battery), nil
	case TypeMBC3TimerBattery, TypeMBC3TimerRAMBatt:
		return mbc.NewMBC3(rom, h.RAMSize, h.ROMBanks, true, true, rtcClock), nil
	case TypeMBC3, TypeMBC3RAM, TypeMBC3RAMBattery:
		return mbc.NewMBC3(rom, h.RAMSize, h.ROMBanks, h.CartridgeType == TypeMBC3RAMBattery, false, nil), nil
	case TypeMBC5, TypeMBC5RAM, TypeMBC5RAMBattery, TypeMBC5Rumble, TypeMBC5RumbleRAM, TypeMBC5RumbleRAMBatt:
		battery := h.CartridgeType == TypeMBC5RAMBattery || h.CartridgeType == TypeMBC5RumbleRAMBatt
		return mbc.NewMBC5(rom, h.RAMSize, h.ROMBanks, battery), nil
	case TypeMBC7SensorRumbleRAMBatt:
		return mbc.NewMBC7(rom, h.ROMBanks, true), nil
	default:
		return nil, fmt.Errorf("cartridge: unsupported cartridge type %#02x", h.CartridgeType)
	}
}

// HasBattery reports whether this cartridge should persist save data on
// shutdown.
func (c *Cartridge) HasBattery() bool { return c.Mapper.Battery() }

// RAM returns the cartridge's raw external RAM for a .srm save, or nil if
// it has none (e.g. MBC7, which persists via EEPROM instead).
func (c *Cartridge) RAM() []byte {
	if ram := c.Mapper.SRAM(); len(ram) > 0 {
		return ram
	}
	return nil
}

// LoadRAM restores external RAM from a previously saved .srm image. A
// length mismatch is reported but non-fatal: the RAM is zero-filled and
// the mismatch is returned as an error for the host to log.
func (c *Cartridge) LoadRAM(data []byte) error {
	ram := c.Mapper.SRAM()
	if ram == nil {
		return nil
	}
	if len(data) != len(ram) {
		for i := range ram {
			ram[i] = 0
		}
		return fmt.Errorf("cartridge: SRAM file length %d does not match expected %d, zero-filled", len(data), len(ram))
	}
	copy(ram, data)
	return nil
}

// RTC returns the cartridge's real-time clock, or nil if it doesn't have
// one.
func (c *Cartridge) RTC() *mbc.RTC {
	if m, ok := c.Mapper.(*mbc.MBC3); ok {
		return m.RTC()
	}
	return nil
}

// EEPROM returns the cartridge's EEPROM, or nil if it doesn't have one.
func (c *Cartridge) EEPROM() *mbc.EEPROM {
	if m, ok := c.Mapper.(*mbc.MBC7); ok {
		return m.EEPROM()
	}
	return nil
}

// SetAccelerometer forwards host tilt input to an MBC7 cartridge. It is a
// no-op for any other mapper.
func (c *Cartridge) SetAccelerometer(x, y int16) {
	if m, ok := c.Mapper.(*mbc.MBC7); ok {
		m.SetTilt(x, y)
	}
}

// MapperState is an opaque snapshot of the active mapper's bank-select
// registers (and, for MBC3, its RTC). The concrete type behind the
// interface{} varies by mapper kind; Restore type-switches on it exactly
// as Save produced it, so the two must always be called against the same
// mapper variant.
type MapperState struct {
	Kind  string
	State interface{}
}

// Save returns a snapshot of the mapper's bank-select registers. External
// RAM, RTC contents, and EEPROM contents are saved separately via RAM(),
// RTC(), and EEPROM().
func (c *Cartridge) Save() MapperState {
	switch m := c.Mapper.(type) {
	case *mbc.MBC1:
		return MapperState{"MBC1", m.Save()}
	case *mbc.MBC2:
		return MapperState{"MBC2", m.Save()}
	case *mbc.MBC3:
		return MapperState{"MBC3", m.Save()}
	case *mbc.MBC5:
		return MapperState{"MBC5", m.Save()}
	case *mbc.MBC7:
		return MapperState{"MBC7", m.Save()}
	default:
		return MapperState{"None", nil}
	}
}

// Restore replaces the mapper's bank-select registers with a previously
// saved snapshot. A Kind mismatch against the cartridge's actual mapper is
// a programmer error (restoring a snapshot against the wrong ROM) and is
// silently ignored, matching the rest of the core's never-panic-on-bad-
// input policy.
func (c *Cartridge) Restore(s MapperState) {
	switch m := c.Mapper.(type) {
	case *mbc.MBC1:
		if st, ok := s.State.(mbc.MBC1State); ok {
			m.Restore(st)
		}
	case *mbc.MBC2:
		if st, ok := s.State.(mbc.MBC2State); ok {
			m.Restore(st)
		}
	case *mbc.MBC3:
		if st, ok := s.State.(mbc.MBC3State); ok {
			m.Restore(st)
		}
	case *mbc.MBC5:
		if st, ok := s.State.(mbc.MBC5State); ok {
			m.Restore(st)
		}
	case *mbc.MBC7:
		if st, ok := s.State.(mbc.MBC7State); ok {
			m.Restore(st)
		}
	}
}

// ReadROM dispatches a 0x0000-0x7FFF read to the mapper.
func (c *Cartridge) ReadROM(addr uint16) uint8 { return c.Mapper.ReadROM(addr) }

// WriteROM dispatches a 0x0000-0x7FFF write to the mapper.
func (c *Cartridge) WriteROM(addr uint16, value uint8) { c.Mapper.WriteROM(addr, value) }

// ReadRAM dispatches a 0xA000-0xBFFF read to the mapper.
func (c *Cartridge) ReadRAM(addr uint16) uint8 { return c.Mapper.ReadRAM(addr) }

// WriteRAM dispatches a 0xA000-0xBFFF write to the mapper.
func (c *Cartridge) WriteRAM(addr uint16, value uint8) { c.Mapper.WriteRAM(addr, value) }
