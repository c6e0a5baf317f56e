// Package cpu emulates the Sharp SM83 (LR35902): the Game Boy's
// fetch-decode-execute core, its 256 base and 256 CB-prefixed opcodes,
// interrupt servicing, and the HALT/STOP/double-speed power states.
package cpu

import (
	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/interrupts"
)

// mode tracks the CPU's power state, separate from the ordinary
// fetch-execute loop so HALT/STOP/the HALT bug can each override normal
// instruction fetch without tangling the main Step switch.
type mode uint8

const (
	modeNormal mode = iota
	modeHalt
	modeStop
)

// CPU executes instructions against a *bus.Bus. Nothing it reaches (the
// bus, peripherals) holds a reference back to it; interrupts are observed
// purely through bus.IRQ.
type CPU struct {
	Registers
	PC, SP uint16

	bus *bus.Bus

	mode     mode
	haltBug  bool
}

// New returns a CPU wired to the given bus, registers zeroed (the caller
// is expected to set post-boot-ROM register/PC state where that matters).
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b}
}

// Bus exposes the wired bus, e.g. for the emulator shell to reset
// peripherals or drive save states.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// PostBoot sets the documented register/PC/SP values real hardware has
// immediately after the boot ROM hands off control, since no boot ROM is
// emulated. cgb selects the Game Boy Color values (distinguished only by
// A, used by cartridges to detect CGB hardware) over the DMG ones.
func (c *CPU) PostBoot(cgb bool) {
	c.Registers = Registers{A: 0x01, F: 0xB0, B: 0x00, C: 0x13, D: 0x00, E: 0xD8, H: 0x01, L: 0x4D}
	if cgb {
		c.Registers.A = 0x11
	}
	c.PC, c.SP = 0x0100, 0xFFFE
}

// fetchByte reads the byte at PC and advances PC, consuming one M-cycle.
func (c *CPU) fetchByte() uint8 {
	v := c.bus.ReadByte(c.PC)
	c.PC++
	return v
}

// fetchWord reads a little-endian 16-bit immediate at PC, advancing PC by
// two and consuming two M-cycles.
func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

// delay consumes one M-cycle without a memory access, used for the extra
// internal cycle several 16-bit and control-flow instructions spend.
func (c *CPU) delay() { c.bus.Tick(4) }

func (c *CPU) push16(v uint16) {
	c.SP--
	c.bus.WriteByte(c.SP, uint8(v>>8))
	c.SP--
	c.bus.WriteByte(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.bus.ReadByte(c.SP)
	c.SP++
	hi := c.bus.ReadByte(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// Step executes one instruction (or one power-state tick while
// halted/stopped) and services at most one pending interrupt afterward.
// It returns the number of T-cycles consumed.
func (c *CPU) Step() int {
	before := c.bus.TotalTicks()

	// Resolve any EI armed by the *previous* instruction before this one
	// is fetched, so IME only ever becomes visible at an instruction
	// boundary one full instruction after EI ran (never mid-instruction,
	// and never within EI's own Step).
	c.bus.IRQ.Tick()

	switch c.mode {
	case modeHalt:
		if c.bus.IRQ.Any() {
			c.mode = modeNormal
			if c.bus.IRQ.IME {
				if bit, ok := c.bus.IRQ.NextPending(); ok {
					c.serviceInterrupt(bit)
					return c.bus.TotalTicks() - before
				}
			}
		} else {
			c.delay()
			return c.bus.TotalTicks() - before
		}
	case modeStop:
		if c.bus.HasPendingSpeedSwitch() {
			c.bus.PerformSpeedSwitch()
			c.mode = modeNormal
			c.delay()
			return c.bus.TotalTicks() - before
		}
		if c.bus.IRQ.Requested(interrupts.Joypad) {
			c.mode = modeNormal
		} else {
			c.delay()
			return c.bus.TotalTicks() - before
		}
	}

	opcode := c.fetchByte()
	if c.haltBug {
		c.PC--
		c.haltBug = false
	}
	c.execute(opcode)

	if c.bus.IRQ.IME {
		if bit, ok := c.bus.IRQ.NextPending(); ok {
			c.serviceInterrupt(bit)
		}
	}

	return c.bus.TotalTicks() - before
}

// serviceInterrupt pushes PC, jumps to the interrupt's vector, clears its
// IF bit and IME, and spends the 5 M-cycles real hardware takes to do so.
func (c *CPU) serviceInterrupt(bit interrupts.Bit) {
	c.delay()
	c.delay()
	c.push16(c.PC)
	c.bus.IRQ.Clear(bit)
	c.bus.IRQ.Disable()
	c.PC = bit.Vector()
	c.delay()
}

// halt enters HALT, detecting the well-known HALT bug: if IME is clear but
// an interrupt is already pending, the next opcode fetch fails to advance
// PC, causing the following byte to be decoded twice.
func (c *CPU) halt() {
	if !c.bus.IRQ.IME && c.bus.IRQ.Any() {
		c.haltBug = true
		return
	}
	c.mode = modeHalt
}

// stop enters STOP. On CGB with KEY1 bit 0 armed it leaves the CPU running
// and the caller's step loop (gameboy.Core.StepFor) performs the pending
// speed switch once Step returns; otherwise it is a true low-power halt
// that only a joypad transition wakes.
func (c *CPU) stop() {
	if c.bus.HasPendingSpeedSwitch() {
		return
	}
	c.mode = modeStop
}

// State is the serializable snapshot of a CPU, used by save states.
type State struct {
	Registers
	PC, SP uint16
	Mode   mode
}

// Save returns a snapshot of the CPU's register/PC/SP/power-mode state.
// IME and IF/IE live on the bus's interrupt controller and are saved
// separately by the emulator shell.
func (c *CPU) Save() State {
	return State{c.Registers, c.PC, c.SP, c.mode}
}

// Restore replaces the CPU's state with a previously saved snapshot.
func (c *CPU) Restore(s State) {
	c.Registers, c.PC, c.SP, c.mode = s.Registers, s.PC, s.SP, s.Mode
}
