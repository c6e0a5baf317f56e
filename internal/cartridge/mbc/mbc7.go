package mbc

// accelCenter is the accelerometer reading reported when the cartridge is
// held flat, per Pan Docs' documented MBC7 tilt sensor center value.
const accelCenter = 0x81D0

// MBC7 supports up to 2 MiB of ROM, a 93LC56 serial EEPROM for save data,
// and a 2-axis accelerometer used by titles like Kirby Tilt 'n' Tumble.
// Its RAM window carries no conventional SRAM; all 0xA000-0xBFFF accesses
// instead address one of 16 special registers selected by address bits
// 4-7.
type MBC7 struct {
	rom []byte

	romBanks int
	battery  bool

	// MBC7 gates RAM-window access behind two independent enable writes.
	enableStage1 bool // 0x0A written to 0x0000-0x1FFF
	enableStage2 bool // 0x40 written to 0x4000-0x5FFF
	romBank      uint8

	eeprom *EEPROM

	tiltX, tiltY int16 // host-supplied tilt input
	latchedX     uint16
	latchedY     uint16

	cs, clk, di bool
}

// NewMBC7 returns an MBC7 mapper over rom.
func NewMBC7(rom []byte, romBanks int, battery bool) *MBC7 {
	return &MBC7{
		rom:      rom,
		romBanks: romBanks,
		battery:  battery,
		romBank:  1,
		eeprom:   NewEEPROM(),
		latchedX: accelCenter,
		latchedY: accelCenter,
	}
}

// SetTilt updates the host-supplied accelerometer input. It takes effect
// the next time the game latches the accelerometer (writing 0xAA to
// register 1).
func (m *MBC7) SetTilt(x, y int16) { m.tiltX, m.tiltY = x, y }

// EEPROM exposes the mapper's EEPROM for persistence.
func (m *MBC7) EEPROM() *EEPROM { return m.eeprom }

func (m *MBC7) ReadROM(addr uint16) uint8 {
	bank := 0
	if addr >= 0x4000 {
		bank = int(m.romBank) % m.romBanks
	}
	off := bank*0x4000 + int(addr&0x3FFF)
	if off >= len(m.rom) {
		return 0xFF
	}
	return m.rom[off]
}

func (m *MBC7) WriteROM(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.enableStage1 = value == 0x0A
	case addr < 0x4000:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr < 0x6000:
		m.enableStage2 = value == 0x40
	}
}

func (m *MBC7) ramUnlocked() bool { return m.enableStage1 && m.enableStage2 }

func (m *MBC7) ReadRAM(addr uint16) uint8 {
	if !m.ramUnlocked() {
		return 0xFF
	}
	switch (addr >> 4) & 0x0F {
	case 0x2:
		return uint8(m.latchedX)
	case 0x3:
		return uint8(m.latchedX >> 8)
	case 0x4:
		return uint8(m.latchedY)
	case 0x5:
		return uint8(m.latchedY >> 8)
	case 0x8:
		if m.eeprom.DO() {
			return 0x01
		}
		return 0x00
	default:
		return 0xFF
	}
}

func (m *MBC7) WriteRAM(addr uint16, value uint8) {
	if !m.ramUnlocked() {
		return
	}
	switch (addr >> 4) & 0x0F {
	case 0x0:
		if value == 0x55 {
			// "Erase" the pending latch back to a flat, centered reading.
			m.latchedX, m.latchedY = accelCenter, accelCenter
		}
	case 0x1:
		if value == 0xAA {
			m.latchedX = uint16(int32(accelCenter) + int32(m.tiltX))
			m.latchedY = uint16(int32(accelCenter) + int32(m.tiltY))
		}
	case 0x8:
		m.cs = value&0x80 != 0
		m.clk = value&0x40 != 0
		m.di = value&0x01 != 0
		m.eeprom.SetPins(m.cs, m.clk, m.di)
	}
}

func (m *MBC7) Battery() bool { return m.battery }

// SRAM is nil: MBC7 has no conventional battery RAM, only the EEPROM,
// persisted separately via EEPROM().Words().
func (m *MBC7) SRAM() []byte { return nil }

// MBC7State is the serializable snapshot of MBC7's bank-select and
// accelerometer/EEPROM-pin state. The EEPROM's own contents are persisted
// separately via EEPROM().Words(), matching how .srm and .eeprom files are
// kept as distinct sibling files.
type MBC7State struct {
	EnableStage1 bool
	EnableStage2 bool
	ROMBank      uint8
	TiltX, TiltY int16
	LatchedX     uint16
	LatchedY     uint16
	CS, CLK, DI  bool
}

// Save returns a snapshot of the mapper's bank-select and tilt-latch state.
func (m *MBC7) Save() MBC7State {
	return MBC7State{
		EnableStage1: m.enableStage1, EnableStage2: m.enableStage2, ROMBank: m.romBank,
		TiltX: m.tiltX, TiltY: m.tiltY, LatchedX: m.latchedX, LatchedY: m.latchedY,
		CS: m.cs, CLK: m.clk, DI: m.di,
	}
}

// Restore replaces the mapper's bank-select and tilt-latch state with a
// previously saved snapshot.
func (m *MBC7) Restore(s MBC7State) {
	m.enableStage1, m.enableStage2, m.romBank = s.EnableStage1, s.EnableStage2, s.ROMBank
	m.tiltX, m.tiltY, m.latchedX, m.latchedY = s.TiltX, s.TiltY, s.LatchedX, s.LatchedY
	m.cs, m.clk, m.di = s.CS, s.CLK, s.DI
}
