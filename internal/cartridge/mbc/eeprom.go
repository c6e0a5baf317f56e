package mbc

// eepromState is a step in the 93LC56 serial protocol's state machine.
type eepromState int

const (
	eepromIdle eepromState = iota
	eepromCommand
	eepromWriteData
	eepromReadData
)

// EEPROM emulates the 93LC56 128x16-bit serial EEPROM wired to MBC7's
// accelerometer cartridges for save data. Commands are shifted in MSB
// first as a start bit, a 2-bit opcode, and a 7-bit address (10 bits
// total); WRITE/WRAL additionally shift in 16 bits of data, and READ
// shifts out 16 bits, one per CLK rising edge while CS is held high.
type EEPROM struct {
	data [128]uint16

	writeEnabled bool
	cs, clk      bool

	state   eepromState
	shiftIn uint32
	bits    int

	opcode uint8
	addr   uint8
	wrAll  bool

	outWord    uint16
	outBitsLeft int
	doBit       bool
}

// NewEEPROM returns an EEPROM with all cells erased (0xFFFF, matching a
// freshly-formatted chip).
func NewEEPROM() *EEPROM {
	e := &EEPROM{}
	for i := range e.data {
		e.data[i] = 0xFFFF
	}
	return e
}

// SetPins drives the three serial lines the cartridge's single EEPROM
// register multiplexes: chip-select, clock, and data-in. The data-out line
// is read back separately via DO.
func (e *EEPROM) SetPins(cs, clk, di bool) {
	if !cs {
		if e.cs {
			e.reset()
		}
		e.cs = false
		e.clk = clk
		return
	}
	if clk && !e.clk {
		e.clockIn(di)
	}
	e.cs, e.clk = cs, clk
}

// DO returns the current state of the data-out line.
func (e *EEPROM) DO() bool { return e.doBit }

func (e *EEPROM) reset() {
	e.state = eepromIdle
	e.shiftIn = 0
	e.bits = 0
}

func (e *EEPROM) clockIn(di bool) {
	switch e.state {
	case eepromIdle:
		if di {
			e.state = eepromCommand
			e.shiftIn = 1
			e.bits = 1
		}
	case eepromCommand:
		e.shiftIn = e.shiftIn<<1 | b2u32(di)
		e.bits++
		if e.bits == 10 {
			e.opcode = uint8(e.shiftIn >> 7 & 0x3)
			e.addr = uint8(e.shiftIn & 0x7F)
			e.dispatch()
		}
	case eepromWriteData:
		e.shiftIn = e.shiftIn<<1 | b2u32(di)
		e.bits++
		if e.bits == 16 {
			if e.writeEnabled {
				if e.wrAll {
					for i := range e.data {
						e.data[i] = uint16(e.shiftIn)
					}
				} else {
					e.data[e.addr] = uint16(e.shiftIn)
				}
			}
			e.state = eepromIdle
		}
	case eepromReadData:
		e.doBit = e.outWord&0x8000 != 0
		e.outWord <<= 1
		e.outBitsLeft--
		if e.outBitsLeft == 0 {
			e.state = eepromIdle
		}
	}
}

func (e *EEPROM) dispatch() {
	switch e.opcode {
	case 0b01: // WRITE(a)
		e.state, e.shiftIn, e.bits, e.wrAll = eepromWriteData, 0, 0, false
	case 0b10: // READ(a)
		e.outWord = e.data[e.addr]
		e.outBitsLeft = 16
		e.doBit = e.outWord&0x8000 != 0
		e.state = eepromReadData
	case 0b11: // ERASE(a)
		if e.writeEnabled {
			e.data[e.addr] = 0xFFFF
		}
		e.state = eepromIdle
	case 0b00: // extended command, selected by the top 2 bits of addr
		switch e.addr >> 5 {
		case 0b00: // EWDS
			e.writeEnabled = false
			e.state = eepromIdle
		case 0b01: // WRAL
			e.state, e.shiftIn, e.bits, e.wrAll = eepromWriteData, 0, 0, true
		case 0b10: // ERAL
			if e.writeEnabled {
				for i := range e.data {
					e.data[i] = 0xFFFF
				}
			}
			e.state = eepromIdle
		case 0b11: // EWEN
			e.writeEnabled = true
			e.state = eepromIdle
		}
	}
}

func b2u32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Words returns the raw 128-word contents, for persistence as a .eeprom file.
func (e *EEPROM) Words() [128]uint16 { return e.data }

// LoadWords replaces the EEPROM's contents, e.g. from a persisted .eeprom file.
func (e *EEPROM) LoadWords(w [128]uint16) { e.data = w }
