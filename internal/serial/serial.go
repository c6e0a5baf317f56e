// Package serial emulates the Game Boy's link-cable port. No peer is ever
// connected: a transfer always shifts in 0xFF, matching real hardware with
// nothing plugged into the port.
package serial

import "github.com/dmgcore/gbcore/internal/interrupts"

const bitPeriod = 512 // T-cycles per shifted bit at the internal clock

// Sink receives each byte written to SB just before a transfer completes,
// before it is overwritten with 0xFF. Test ROMs commonly use the serial
// port to print ASCII output; a host or test harness can hook this to
// capture it without the core needing a global print statement.
type Sink interface {
	ReceiveByte(b uint8)
}

// Controller emulates SB/SC (0xFF01/0xFF02).
type Controller struct {
	sb uint8
	sc uint8

	ticks    int
	bitsLeft int

	irq  *interrupts.Controller
	sink Sink
}

// New returns a Controller with the port idle.
func New(irq *interrupts.Controller) *Controller {
	return &Controller{sc: 0x7E, irq: irq}
}

// SetSink installs (or clears, with nil) the byte sink used to observe
// completed transfers.
func (c *Controller) SetSink(s Sink) { c.sink = s }

// ReadSB returns the current contents of the shift register.
func (c *Controller) ReadSB() uint8 { return c.sb }

// ReadSC returns SC with its unused bits (1-6) forced high.
func (c *Controller) ReadSC() uint8 { return c.sc | 0x7E }

// WriteSB loads a byte to be shifted out.
func (c *Controller) WriteSB(v uint8) { c.sb = v }

// WriteSC starts (or aborts) a transfer. Only an internal-clock transfer
// (bit 0 set) ever completes; an external-clock request (bit 0 clear) waits
// forever for a peer that will never arrive.
func (c *Controller) WriteSC(v uint8) {
	c.sc = v
	if v&0x81 == 0x81 {
		c.ticks = 0
		c.bitsLeft = 8
	} else if v&0x80 == 0 {
		c.bitsLeft = 0
	}
}

// Tick advances the serial port by one T-cycle.
func (c *Controller) Tick() {
	if c.bitsLeft == 0 {
		return
	}
	c.ticks++
	if c.ticks < bitPeriod {
		return
	}
	c.ticks = 0
	c.bitsLeft--
	if c.bitsLeft == 0 {
		if c.sink != nil {
			c.sink.ReceiveByte(c.sb)
		}
		c.sb = 0xFF
		c.sc &^= 0x80
		c.irq.Request(interrupts.Serial)
	}
}

// State is the serializable snapshot of a Controller.
type State struct {
	SB, SC           uint8
	Ticks, BitsLeft int
}

// Save returns a snapshot of the controller's state.
func (c *Controller) Save() State {
	return State{c.sb, c.sc, c.ticks, c.bitsLeft}
}

// Restore replaces the controller's state with a previously saved snapshot.
func (c *Controller) Restore(s State) {
	c.sb, c.sc, c.ticks, c.bitsLeft = s.SB, s.SC, s.Ticks, s.BitsLeft
}
