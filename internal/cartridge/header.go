package cartridge

import "fmt"

// HeaderSize is the minimum ROM length that contains the whole cartridge
// header region (0x0100-0x014F).
const HeaderSize = 0x150

// ColorSupport describes a cartridge's relationship to the Game Boy Color,
// derived from the header byte at 0x0143.
type ColorSupport uint8

const (
	DMGOnly ColorSupport = iota
	CGBSupported
	CGBOnly
)

// Type is the cartridge-type byte at 0x0147, identifying the mapper and
// attached hardware (battery, RTC, rumble...).
type Type uint8

const (
	TypeROMOnly           Type = 0x00
	TypeMBC1              Type = 0x01
	TypeMBC1RAM           Type = 0x02
	TypeMBC1RAMBattery    Type = 0x03
	TypeMBC2              Type = 0x05
	TypeMBC2Battery       Type = 0x06
	TypeROMRAM            Type = 0x08
	TypeROMRAMBattery     Type = 0x09
	TypeMBC3TimerBattery  Type = 0x0F
	TypeMBC3TimerRAMBatt  Type = 0x10
	TypeMBC3              Type = 0x11
	TypeMBC3RAM           Type = 0x12
	TypeMBC3RAMBattery    Type = 0x13
	TypeMBC5              Type = 0x19
	TypeMBC5RAM           Type = 0x1A
	TypeMBC5RAMBattery    Type = 0x1B
	TypeMBC5Rumble        Type = 0x1C
	TypeMBC5RumbleRAM     Type = 0x1D
	TypeMBC5RumbleRAMBatt Type = 0x1E
	TypeMBC7SensorRumbleRAMBatt Type = 0x22
	TypePocketCamera            Type = 0xFC
)

var ramSizeCodes = map[uint8]int{
	0x00: 0,
	0x01: 2 * 1024,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

// Header is the parsed cartridge header living at 0x0100-0x014F.
type Header struct {
	Title            string
	ManufacturerCode string
	ColorSupport     ColorSupport
	NewLicenseeCode  string
	SGBSupported     bool
	CartridgeType    Type
	ROMBanks         int
	RAMSize          int
	OldLicenseeCode  uint8
	MaskROMVersion   uint8
	HeaderChecksum   uint8
	GlobalChecksum   uint16
}

// ParseHeader parses the 0x0100-0x014F header region out of a full ROM
// image. rom must be at least HeaderSize bytes.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < HeaderSize {
		return Header{}, fmt.Errorf("cartridge: ROM too small to contain a header (%d bytes)", len(rom))
	}
	h := Header{}

	switch rom[0x143] {
	case 0x80:
		h.ColorSupport = CGBSupported
	case 0xC0:
		h.ColorSupport = CGBOnly
	default:
		h.ColorSupport = DMGOnly
	}

	titleEnd := 0x144
	if h.ColorSupport == DMGOnly {
		titleEnd = 0x144
	} else {
		titleEnd = 0x143
	}
	h.Title = trimTitle(rom[0x134:titleEnd])
	h.ManufacturerCode = string(rom[0x13F:0x143])
	h.NewLicenseeCode = string(rom[0x144:0x146])
	h.SGBSupported = rom[0x146] == 0x03
	h.CartridgeType = Type(rom[0x147])
	h.ROMBanks = romBanks(rom[0x148])
	h.RAMSize = ramSizeCodes[rom[0x149]]
	h.OldLicenseeCode = rom[0x14B]
	h.MaskROMVersion = rom[0x14C]
	h.HeaderChecksum = rom[0x14D]
	h.GlobalChecksum = uint16(rom[0x14E])<<8 | uint16(rom[0x14F])

	return h, nil
}

// trimTitle strips trailing NUL padding from the raw title bytes.
func trimTitle(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// romBanks converts the ROM-size header code into a bank count. Most carts
// follow 2 << code; a handful of irregular carts (codes 0x52-0x54) use
// non-power-of-two bank counts, per Pan Docs.
func romBanks(code uint8) int {
	switch code {
	case 0x52:
		return 72
	case 0x53:
		return 80
	case 0x54:
		return 96
	default:
		return 2 << code
	}
}

// ComputeChecksum reproduces the header-checksum algorithm from 0x0134 to
// 0x014C. It is reported but, per real hardware and this spec, never
// enforced against boot.
func ComputeChecksum(rom []byte) uint8 {
	var x uint8
	for i := 0x134; i <= 0x14C; i++ {
		x = x - rom[i] - 1
	}
	return x
}

func (h Header) GameBoyColor() bool {
	return h.ColorSupport == CGBSupported || h.ColorSupport == CGBOnly
}

func (h Header) String() string {
	return fmt.Sprintf("%s (type=%#02x, rom=%d banks, ram=%dKiB)", h.Title, h.CartridgeType, h.ROMBanks, h.RAMSize/1024)
}
