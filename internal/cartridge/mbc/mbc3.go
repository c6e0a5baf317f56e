package mbc

// MBC3 supports up to 2 MiB of ROM via a 7-bit bank register, up to 32 KiB
// of RAM, and an optional real-time clock whose registers share the same
// select range as the RAM banks.
type MBC3 struct {
	rom []byte
	ram []byte

	romBanks int
	battery  bool
	hasRTC   bool
	rtc      *RTC

	ramEnabled bool
	romBank    uint8
	select_    uint8 // 0x00-0x03 = RAM bank; 0x08-0x0C = RTC register
	latchByte  uint8 // tracks the 0-then-1 latch write sequence
}

// NewMBC3 returns an MBC3 mapper. If hasRTC, rtcClock supplies the wall
// clock the RTC advances against (nil selects time.Now).
func NewMBC3(rom []byte, ramSize int, romBanks int, battery bool, hasRTC bool, rtcClock Clock) *MBC3 {
	m := &MBC3{
		rom:      rom,
		ram:      make([]byte, ramSize),
		romBanks: romBanks,
		battery:  battery,
		hasRTC:   hasRTC,
		romBank:  1,
	}
	if hasRTC {
		m.rtc = NewRTC(rtcClock)
	}
	return m
}

func (m *MBC3) ReadROM(addr uint16) uint8 {
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

func (m *MBC3) WriteROM(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr < 0x6000:
		m.select_ = value
	default:
		if m.latchByte == 0x00 && value == 0x01 && m.hasRTC {
			m.rtc.Latch()
		}
		m.latchByte = value
	}
}

func (m *MBC3) ReadRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.select_ <= 0x03 {
		off := int(m.select_)*0x2000 + int(addr&0x1FFF)
		if off >= len(m.ram) {
			return 0xFF
		}
		return m.ram[off]
	}
	if m.hasRTC && m.select_ >= 0x08 && m.select_ <= 0x0C {
		return m.rtc.ReadRegister(m.select_)
	}
	return 0xFF
}

func (m *MBC3) WriteRAM(addr uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if m.select_ <= 0x03 {
		off := int(m.select_)*0x2000 + int(addr&0x1FFF)
		if off < len(m.ram) {
			m.ram[off] = value
		}
		return
	}
	if m.hasRTC && m.select_ >= 0x08 && m.select_ <= 0x0C {
		m.rtc.WriteRegister(m.select_, value)
	}
}

func (m *MBC3) Battery() bool { return m.battery }
func (m *MBC3) SRAM() []byte  { return m.ram }

// RTC returns the mapper's RTC, or nil if the cartridge doesn't have one.
func (m *MBC3) RTC() *RTC { return m.rtc }

// MBC3State is the serializable snapshot of MBC3's bank-select registers
// and, if present, its RTC.
type MBC3State struct {
	RAMEnabled bool
	ROMBank    uint8
	Select     uint8
	LatchByte  uint8
	HasRTC     bool
	RTC        State
}

// Save returns a snapshot of the mapper's bank-select state and RTC, if any.
func (m *MBC3) Save() MBC3State {
	s := MBC3State{RAMEnabled: m.ramEnabled, ROMBank: m.romBank, Select: m.select_, LatchByte: m.latchByte}
	if m.hasRTC {
		s.HasRTC = true
		s.RTC = m.rtc.Save()
	}
	return s
}

// Restore replaces the mapper's bank-select state and RTC, if any, with a
// previously saved snapshot.
func (m *MBC3) Restore(s MBC3State) {
	m.ramEnabled, m.romBank, m.select_, m.latchByte = s.RAMEnabled, s.ROMBank, s.Select, s.LatchByte
	if m.hasRTC && s.HasRTC {
		m.rtc.Restore(s.RTC)
	}
}
