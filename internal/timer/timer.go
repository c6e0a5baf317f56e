// Package timer emulates the Game Boy's DIV/TIMA/TMA/TAC timer block,
// including the falling-edge TIMA increment and the overflow-reload quirks
// that test ROMs commonly exercise.
package timer

import "github.com/dmgcore/gbcore/internal/interrupts"

// selectedBit maps TAC's clock-select bits (0-3) to the DIV bit that is
// observed for falling edges.
var selectedBit = [4]uint8{9, 3, 5, 7}

// Controller emulates DIV/TIMA/TMA/TAC (0xFF04-0xFF07).
type Controller struct {
	div uint16 // internal 16-bit counter; DIV register is the high byte

	tima, tma, tac uint8

	lastSelected bool // previous value of the observed DIV bit, for edge detection

	// overflow reload is delayed by 4 T-cycles, during which a write to
	// TIMA cancels the reload and a write to TMA retargets it.
	reloadPending  bool
	reloadTicks    int
	reloadCanceled bool

	irq *interrupts.Controller
}

// New returns a Controller with DIV at its documented post-boot value.
func New(irq *interrupts.Controller) *Controller {
	return &Controller{div: 0xABCC, irq: irq}
}

// ReadDIV returns the visible DIV register (the high byte of the internal counter).
func (c *Controller) ReadDIV() uint8 { return uint8(c.div >> 8) }

// WriteDIV resets the full 16-bit internal counter to zero. If the
// currently-observed DIV bit was set, this produces a spurious falling edge
// and may increment TIMA.
func (c *Controller) WriteDIV(uint8) {
	wasSet := c.observedBit()
	c.div = 0
	if wasSet && !c.observedBit() {
		c.stepTIMA()
	}
	c.lastSelected = c.observedBit()
}

// ReadTIMA returns the current TIMA value.
func (c *Controller) ReadTIMA() uint8 { return c.tima }

// WriteTIMA loads TIMA directly. A write during the 4-cycle reload window
// cancels the pending reload-from-TMA (the TIMA quirk).
func (c *Controller) WriteTIMA(v uint8) {
	c.tima = v
	if c.reloadPending {
		c.reloadCanceled = true
	}
}

// ReadTMA returns the current TMA value.
func (c *Controller) ReadTMA() uint8 { return c.tma }

// WriteTMA sets the reload value. A write during the 4-cycle reload window
// also updates TIMA itself, since the reload hasn't landed yet.
func (c *Controller) WriteTMA(v uint8) {
	c.tma = v
	if c.reloadPending {
		c.tima = v
	}
}

// ReadTAC returns TAC with its unused bits forced high.
func (c *Controller) ReadTAC() uint8 { return c.tac | 0xF8 }

// WriteTAC updates the enable bit and clock-select bits. Disabling the
// timer, or switching to a clock-select whose bit is currently low while
// the old one was high, produces a spurious falling edge exactly as
// clearing the enable bit does on real hardware.
func (c *Controller) WriteTAC(v uint8) {
	wasSet := c.observedBit()
	c.tac = v & 0x07
	if wasSet && !c.observedBit() {
		c.stepTIMA()
	}
	c.lastSelected = c.observedBit()
}

// observedBit reports the current value of the DIV bit TAC selects, ANDed
// with the timer's enable bit — the quantity whose falling edge clocks
// TIMA.
func (c *Controller) observedBit() bool {
	if c.tac&0x04 == 0 {
		return false
	}
	return c.div&(1<<selectedBit[c.tac&0x03]) != 0
}

// Tick advances the timer by one T-cycle.
func (c *Controller) Tick() {
	if c.reloadPending {
		c.reloadTicks++
		if c.reloadTicks == 4 {
			c.reloadPending = false
			if !c.reloadCanceled {
				c.tima = c.tma
				c.irq.Request(interrupts.Timer)
			}
			c.reloadCanceled = false
		}
	}

	c.div++
	cur := c.observedBit()
	if c.lastSelected && !cur {
		c.stepTIMA()
	}
	c.lastSelected = cur
}

// stepTIMA increments TIMA, arming the delayed reload on overflow.
func (c *Controller) stepTIMA() {
	c.tima++
	if c.tima == 0 {
		c.reloadPending = true
		c.reloadTicks = 0
		c.reloadCanceled = false
	}
}

// State is the serializable snapshot of a Controller.
type State struct {
	Div                            uint16
	Tima, Tma, Tac                 uint8
	LastSelected                   bool
	ReloadPending, ReloadCanceled  bool
	ReloadTicks                    int
}

// Save returns a snapshot of the controller's state.
func (c *Controller) Save() State {
	return State{c.div, c.tima, c.tma, c.tac, c.lastSelected, c.reloadPending, c.reloadCanceled, c.reloadTicks}
}

// Restore replaces the controller's state with a previously saved snapshot.
func (c *Controller) Restore(s State) {
	c.div, c.tima, c.tma, c.tac = s.Div, s.Tima, s.Tma, s.Tac
	c.lastSelected, c.reloadPending, c.reloadCanceled, c.reloadTicks =
		s.LastSelected, s.ReloadPending, s.ReloadCanceled, s.ReloadTicks
}
