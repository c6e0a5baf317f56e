// Package debug captures point-in-time introspection snapshots of a
// running gameboy.Core — CPU registers, PPU/timer register state, pending
// interrupts, and the cartridge mapper's bank-select state — for the
// gbdebug inspector and debugserver's websocket feed to render.
package debug

import (
	"fmt"

	"github.com/dmgcore/gbcore/internal/gameboy"
	"github.com/dmgcore/gbcore/internal/interrupts"
)

// Registers mirrors cpu.Registers plus PC/SP, copied out so a caller can
// hold it without aliasing the live CPU.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	PC, SP                 uint16
}

// AF, BC, DE, HL return the eight 8-bit registers combined into their
// 16-bit pair form, matching how debuggers conventionally display them.
func (r Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

// PPURegisters mirrors the handful of PPU registers worth surfacing in a
// debug view.
type PPURegisters struct {
	LCDC, STAT, LY, LYC, SCX, SCY, WX, WY, BGP uint8
}

// TimerRegisters mirrors the timer's four memory-mapped registers.
type TimerRegisters struct {
	DIV, TIMA, TMA, TAC uint8
}

// Snapshot is a single point-in-time capture of a Core's visible state.
type Snapshot struct {
	Registers Registers
	IME       bool

	PPU    PPURegisters
	Timer  TimerRegisters
	IE, IF uint8

	ROMTitle    string
	MapperKind  string
	MapperState string // fmt.Sprintf("%+v", ...) of the mapper's bank-select state

	TotalTCycles int
}

// Capture reads every field of Snapshot off core without mutating it.
func Capture(core *gameboy.Core) Snapshot {
	c := core.CPU()
	b := core.Bus()
	mapper := b.Cart.Save()

	return Snapshot{
		Registers: Registers{A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L, PC: c.PC, SP: c.SP},
		IME:       b.IRQ.IME,
		PPU: PPURegisters{
			LCDC: b.PPU.ReadRegister(0xFF40),
			STAT: b.PPU.ReadRegister(0xFF41),
			LY:   b.PPU.ReadRegister(0xFF44),
			LYC:  b.PPU.ReadRegister(0xFF45),
			SCX:  b.PPU.ReadRegister(0xFF43),
			SCY:  b.PPU.ReadRegister(0xFF42),
			WX:   b.PPU.ReadRegister(0xFF4B),
			WY:   b.PPU.ReadRegister(0xFF4A),
			BGP:  b.PPU.ReadRegister(0xFF47),
		},
		Timer: TimerRegisters{
			DIV:  b.Timer.ReadDIV(),
			TIMA: b.Timer.ReadTIMA(),
			TMA:  b.Timer.ReadTMA(),
			TAC:  b.Timer.ReadTAC(),
		},
		IE:           b.IRQ.Read(interrupts.EnableAddr),
		IF:           b.IRQ.Read(interrupts.FlagAddr),
		ROMTitle:     core.Header().Title,
		MapperKind:   mapper.Kind,
		MapperState:  fmt.Sprintf("%+v", mapper.State),
		TotalTCycles: b.TotalTicks(),
	}
}
