package mbc

// MBC2 supports up to 256 KiB of ROM via a 4-bit bank register and has a
// built-in 512x4-bit RAM (no external RAM chip): each byte only carries 4
// meaningful bits, with the upper nibble reading back as 1s.
type MBC2 struct {
	rom []byte
	ram [512]byte

	romBanks   int
	battery    bool
	ramEnabled bool
	romBank    uint8
}

// NewMBC2 returns an MBC2 mapper over rom.
func NewMBC2(rom []byte, romBanks int, battery bool) *MBC2 {
	return &MBC2{rom: rom, romBanks: romBanks, battery: battery, romBank: 1}
}

func (m *MBC2) ReadROM(addr uint16) uint8 {
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

// WriteROM dispatches on bit 8 of the address: clear selects RAM-enable,
// set selects the ROM bank register.
func (m *MBC2) WriteROM(addr uint16, value uint8) {
	if addr >= 0x4000 {
		return
	}
	if addr&0x0100 == 0 {
		m.ramEnabled = value&0x0F == 0x0A
		return
	}
	bank := value & 0x0F
	if bank == 0 {
		bank = 1
	}
	m.romBank = bank
}

// ReadRAM mirrors the 512 internal nibbles across the whole 0xA000-0xBFFF
// window at 512-byte stride; only the low nibble of each byte is real, the
// high nibble always reads back as 1.
func (m *MBC2) ReadRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	return m.ram[addr&0x1FF] | 0xF0
}

func (m *MBC2) WriteRAM(addr uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	m.ram[addr&0x1FF] = value & 0x0F
}

func (m *MBC2) Battery() bool { return m.battery }
func (m *MBC2) SRAM() []byte  { return m.ram[:] }

// MBC2State is the serializable snapshot of MBC2's bank-select registers.
type MBC2State struct {
	RAMEnabled bool
	ROMBank    uint8
}

// Save returns a snapshot of the mapper's bank-select state.
func (m *MBC2) Save() MBC2State {
	return MBC2State{m.ramEnabled, m.romBank}
}

// Restore replaces the mapper's bank-select state with a previously saved
// snapshot.
func (m *MBC2) Restore(s MBC2State) {
	m.ramEnabled, m.romBank = s.RAMEnabled, s.ROMBank
}
