// Package mbc implements the cartridge memory bank controllers: the chips
// on the cartridge board that virtualize the CPU's fixed 32 KiB ROM window
// and 8 KiB RAM window into a much larger address space, and in some cases
// add battery-backed RAM, a real-time clock, or other peripherals.
//
// Each variant is a concrete type implementing Mapper rather than a shared
// interface dispatched virtually in the hot path; the bus holds the
// concrete Mapper value and calls through the interface only at the
// package boundary, which the Go compiler devirtualizes for the common
// case of a single concrete type per cartridge instance.
package mbc

// Mapper is implemented by every cartridge mapper variant.
type Mapper interface {
	// ReadROM reads from the 0x0000-0x7FFF cartridge ROM window.
	ReadROM(addr uint16) uint8
	// WriteROM handles a write into the ROM window; on every real mapper
	// this never touches ROM contents and only mutates bank-select state.
	WriteROM(addr uint16, value uint8)
	// ReadRAM reads from the 0xA000-0xBFFF cartridge RAM window.
	ReadRAM(addr uint16) uint8
	// WriteRAM handles a write into the RAM window.
	WriteRAM(addr uint16, value uint8)

	// Battery reports whether this cartridge has battery-backed state that
	// should be persisted (external RAM, RTC, EEPROM).
	Battery() bool
	// SRAM returns the raw external RAM bytes to persist as a .srm file,
	// or an empty (possibly nil) slice if this cartridge has none.
	SRAM() []byte
}
