// Package joypad emulates the Game Boy's button matrix and the P1 (0xFF00)
// register through which the CPU polls it.
package joypad

import "github.com/dmgcore/gbcore/internal/interrupts"

// Button identifies one physical button. The values double as bit masks
// in the internal "held" bitmap.
type Button uint8

const (
	Right Button = 1 << iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// The P1 register exposes buttons as two four-button nibbles selected by
// bits 4-5, independent of the bit values assigned above.
const (
	dirNibble    = uint8(Right | Left | Up | Down)
	buttonNibble = uint8(A | B | Select | Start)
)

// Controller holds which buttons are currently held and the state of the
// two select lines written by the game through P1.
type Controller struct {
	held   uint8 // bit set = button currently held down
	select_ uint8 // raw bits 4-5 as last written (0 = that line selected)

	irq *interrupts.Controller
}

// New returns a Controller with no buttons held and both select lines high
// (unselected), matching the power-on state of P1.
func New(irq *interrupts.Controller) *Controller {
	return &Controller{select_: 0x30, irq: irq}
}

// Read returns the current value of P1 (0xFF00): bits 6-7 read as 1, bits
// 4-5 echo the select lines, and bits 0-3 reflect whichever button nibble is
// selected (0 = pressed). If neither line is selected, bits 0-3 read as 1.
func (c *Controller) Read() uint8 {
	out := uint8(0xC0) | c.select_
	nibble := uint8(0x0F)
	if c.select_&0x10 == 0 {
		nibble &= ^c.nibbleFor(dirNibble)
	}
	if c.select_&0x20 == 0 {
		nibble &= ^c.nibbleFor(buttonNibble)
	}
	return out | nibble
}

// nibbleFor packs the held state of the four buttons in group into a 4-bit
// value in hardware column order (bit0=Right/A, bit1=Left/B,
// bit2=Up/Select, bit3=Down/Start).
func (c *Controller) nibbleFor(group uint8) uint8 {
	var n uint8
	i := uint8(0)
	for b := uint8(1); b != 0; b <<= 1 {
		if group&b != 0 {
			if c.held&b != 0 {
				n |= 1 << i
			}
			i++
		}
	}
	return n
}

// Write updates the select lines (bits 4-5 only; bits 0-3 are read-only).
func (c *Controller) Write(value uint8) {
	c.select_ = value & 0x30
}

// Press marks button as held. A high-to-low transition on a bit that is
// currently selected raises the Joypad interrupt, matching real hardware's
// edge-triggered wake-up behaviour.
func (c *Controller) Press(b Button) {
	if c.held&uint8(b) != 0 {
		return // already held, no edge
	}
	c.held |= uint8(b)
	if c.visibleNow(b) {
		c.irq.Request(interrupts.Joypad)
	}
}

// Release marks button as no longer held.
func (c *Controller) Release(b Button) {
	c.held &^= uint8(b)
}

// visibleNow reports whether button b's nibble is currently selected, i.e.
// whether a press of it would be observable by the CPU without it polling
// P1 after changing the select lines.
func (c *Controller) visibleNow(b Button) bool {
	if uint8(b)&dirNibble != 0 && c.select_&0x10 == 0 {
		return true
	}
	if uint8(b)&buttonNibble != 0 && c.select_&0x20 == 0 {
		return true
	}
	return false
}

// State is the serializable snapshot of a Controller.
type State struct {
	Held   uint8
	Select uint8
}

// Save returns a snapshot of the controller's state.
func (c *Controller) Save() State { return State{c.held, c.select_} }

// Restore replaces the controller's state with a previously saved snapshot.
func (c *Controller) Restore(s State) { c.held, c.select_ = s.Held, s.Select }
