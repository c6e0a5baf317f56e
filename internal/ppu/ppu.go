// Package ppu emulates the Game Boy's picture processing unit: the
// scanline mode state machine, background/window/sprite rendering, and the
// DMG and CGB palette registers.
package ppu

import (
	"bytes"
	"encoding/gob"

	"github.com/dmgcore/gbcore/internal/interrupts"
)

const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// PPU owns VRAM, OAM, the LCD/palette registers, and the dot-accurate
// scanline state machine. Its Tick method is called once per T-cycle by
// the bus.
type PPU struct {
	cgb bool

	vram     [2][0x2000]uint8
	vramBank uint8 // CGB VBK register, bit 0 only

	oam [160]uint8

	lcdc, stat       uint8
	scy, scx         uint8
	ly, lyc          uint8
	wy, wx           uint8
	bgp, obp0, obp1  uint8

	bgPalette  paletteRAM
	objPalette paletteRAM

	dot        int
	mode       Mode
	windowLine int
	// statLine tracks the previous value of the STAT interrupt source
	// condition (OR of mode/LYC triggers) to detect the rising edges that
	// actually request the interrupt.
	statLine bool

	Framebuffer [ScreenWidth * ScreenHeight]uint32
	FrameReady  bool

	// oamBlocked additionally blocks OAM while an OAM DMA transfer (owned
	// by the bus) is in flight.
	oamBlocked bool

	irq *interrupts.Controller
}

// New returns a PPU. cgb selects whether the second VRAM bank and CGB
// palette RAM are active.
func New(irq *interrupts.Controller, cgb bool) *PPU {
	p := &PPU{irq: irq, cgb: cgb, lyc: 0}
	p.lcdc = 0x91
	p.stat = 0x85
	p.mode = ModeOAMSearch
	return p
}

// Enabled reports whether LCDC's LCD-enable bit is set.
func (p *PPU) Enabled() bool { return p.lcdc&LCDCEnable != 0 }

// Mode returns the PPU's current scanline mode.
func (p *PPU) Mode() Mode { return p.mode }

// LY returns the current scanline.
func (p *PPU) LY() uint8 { return p.ly }

// SetOAMDMABlocked is called by the bus's OAM DMA engine to additionally
// block OAM reads/writes for the transfer's duration, regardless of mode.
func (p *PPU) SetOAMDMABlocked(blocked bool) { p.oamBlocked = blocked }

// Tick advances the PPU state machine by one T-cycle.
func (p *PPU) Tick() {
	if !p.Enabled() {
		return
	}

	p.dot++

	switch {
	case p.ly < visibleLines && p.dot == oamSearchEnd:
		p.setMode(ModePixelTransfer)
	case p.ly < visibleLines && p.dot == transferEnd:
		p.renderScanline()
		p.setMode(ModeHBlank)
	case p.dot == dotsPerLine:
		p.dot = 0
		p.ly++
		if p.ly == visibleLines {
			p.setMode(ModeVBlank)
			p.irq.Request(interrupts.VBlank)
			p.FrameReady = true
		} else if p.ly == totalLines {
			p.ly = 0
			p.windowLine = 0
			p.setMode(ModeOAMSearch)
		} else if p.ly < visibleLines {
			p.setMode(ModeOAMSearch)
		}
	}

	p.updateLYC()
	p.updateStatIRQ()
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	p.stat = p.stat&^StatModeMask | uint8(m)
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= StatLYCEqualLY
	} else {
		p.stat &^= StatLYCEqualLY
	}
}

// updateStatIRQ requests the LCD STAT interrupt on the rising edge of any
// of its enabled sources (mode 0/1/2 entry, or LYC=LY), matching real
// hardware's OR-of-latches behaviour rather than firing once per source
// independently.
func (p *PPU) updateStatIRQ() {
	line := false
	if p.stat&StatLYCIRQ != 0 && p.stat&StatLYCEqualLY != 0 {
		line = true
	}
	switch p.mode {
	case ModeHBlank:
		line = line || p.stat&StatHBlankIRQ != 0
	case ModeVBlank:
		line = line || p.stat&StatVBlankIRQ != 0
	case ModeOAMSearch:
		line = line || p.stat&StatOAMIRQ != 0
	}
	if line && !p.statLine {
		p.irq.Request(interrupts.LCDStat)
	}
	p.statLine = line
}

// vramBlocked reports whether the CPU-facing VRAM window is currently
// inaccessible: only during mode 3, and only while the LCD is on.
func (p *PPU) vramBlocked() bool {
	return p.Enabled() && p.mode == ModePixelTransfer
}

// oamInaccessible reports whether the CPU-facing OAM window is currently
// inaccessible: during modes 2 and 3 while the LCD is on, or during an OAM
// DMA transfer regardless of mode.
func (p *PPU) oamInaccessible() bool {
	if p.oamBlocked {
		return true
	}
	return p.Enabled() && (p.mode == ModeOAMSearch || p.mode == ModePixelTransfer)
}

// ReadVRAM returns a CPU-visible VRAM byte, honouring mode-3 blocking.
func (p *PPU) ReadVRAM(addr uint16) uint8 {
	if p.vramBlocked() {
		return 0xFF
	}
	return p.vram[p.vramBank][addr&0x1FFF]
}

// WriteVRAM writes a CPU-visible VRAM byte, honouring mode-3 blocking.
func (p *PPU) WriteVRAM(addr uint16, value uint8) {
	if p.vramBlocked() {
		return
	}
	p.vram[p.vramBank][addr&0x1FFF] = value
}

// ReadVRAMRaw reads VRAM bank bank directly, bypassing mode blocking. Used
// by HDMA/GDMA transfers and by debug introspection.
func (p *PPU) ReadVRAMRaw(bank int, addr uint16) uint8 { return p.vram[bank&1][addr&0x1FFF] }

// WriteVRAMRaw writes VRAM bank bank directly, bypassing mode blocking.
// Used by HDMA/GDMA transfers.
func (p *PPU) WriteVRAMRaw(bank int, addr uint16, value uint8) { p.vram[bank&1][addr&0x1FFF] = value }

// ReadOAM returns a CPU-visible OAM byte, honouring mode/DMA blocking.
func (p *PPU) ReadOAM(addr uint16) uint8 {
	if p.oamInaccessible() {
		return 0xFF
	}
	return p.oam[addr&0xFF]
}

// WriteOAM writes a CPU-visible OAM byte, honouring mode/DMA blocking.
func (p *PPU) WriteOAM(addr uint16, value uint8) {
	if p.oamInaccessible() {
		return
	}
	p.oam[addr&0xFF] = value
}

// WriteOAMRaw writes an OAM byte unconditionally. Used by the OAM DMA
// engine, which fills OAM irrespective of the current mode.
func (p *PPU) WriteOAMRaw(index int, value uint8) { p.oam[index&0xFF] = value }

// ReadRegister handles the LCD/palette I/O register reads in 0xFF40-0xFF4B
// and 0xFF4F, 0xFF68-0xFF6B.
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		return p.stat | 0x80
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return p.ly
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	case 0xFF4F:
		if p.cgb {
			return p.vramBank | 0xFE
		}
		return 0xFF
	case 0xFF68:
		return p.bgPalette.readIndex()
	case 0xFF69:
		return p.bgPalette.readData()
	case 0xFF6A:
		return p.objPalette.readIndex()
	case 0xFF6B:
		return p.objPalette.readData()
	}
	return 0xFF
}

// WriteRegister handles the LCD/palette I/O register writes.
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	switch addr {
	case 0xFF40:
		wasEnabled := p.Enabled()
		p.lcdc = value
		if wasEnabled && !p.Enabled() {
			p.ly = 0
			p.dot = 0
			p.setMode(ModeHBlank)
			p.statLine = false
		}
	case 0xFF41:
		p.stat = p.stat&StatModeMask | value&^StatModeMask&^StatLYCEqualLY | p.stat&StatLYCEqualLY
	case 0xFF42:
		p.scy = value
	case 0xFF43:
		p.scx = value
	case 0xFF45:
		p.lyc = value
	case 0xFF47:
		p.bgp = value
	case 0xFF48:
		p.obp0 = value
	case 0xFF49:
		p.obp1 = value
	case 0xFF4A:
		p.wy = value
	case 0xFF4B:
		p.wx = value
	case 0xFF4F:
		if p.cgb {
			p.vramBank = value & 0x01
		}
	case 0xFF68:
		p.bgPalette.writeIndex(value)
	case 0xFF69:
		p.bgPalette.writeData(value)
	case 0xFF6A:
		p.objPalette.writeIndex(value)
	case 0xFF6B:
		p.objPalette.writeData(value)
	}
}

// VRAMBank returns the currently-selected VRAM bank (always 0 on DMG).
func (p *PPU) VRAMBank() int { return int(p.vramBank) }

// State is the serializable snapshot of the PPU: VRAM, OAM, every LCD and
// palette register, and the dot-accurate scanline position.
type State struct {
	VRAM     [2][0x2000]uint8
	VRAMBank uint8
	OAM      [160]uint8

	LCDC, STAT      uint8
	SCY, SCX        uint8
	LY, LYC         uint8
	WY, WX          uint8
	BGP, OBP0, OBP1 uint8

	BGPalette  paletteRAM
	OBJPalette paletteRAM

	Dot        int
	Mode       Mode
	WindowLine int
	StatLine   bool
}

// Save returns a snapshot of the PPU's state.
func (p *PPU) Save() State {
	return State{
		VRAM: p.vram, VRAMBank: p.vramBank, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc,
		WY: p.wy, WX: p.wx,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		BGPalette: p.bgPalette, OBJPalette: p.objPalette,
		Dot: p.dot, Mode: p.mode, WindowLine: p.windowLine, StatLine: p.statLine,
	}
}

// Restore replaces the PPU's state with a previously saved snapshot. The
// framebuffer itself is not part of the snapshot: it is regenerated by the
// next scanline render rather than persisted.
func (p *PPU) Restore(s State) {
	p.vram, p.vramBank, p.oam = s.VRAM, s.VRAMBank, s.OAM
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.wy, p.wx = s.WY, s.WX
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.bgPalette, p.objPalette = s.BGPalette, s.OBJPalette
	p.dot, p.mode, p.windowLine, p.statLine = s.Dot, s.Mode, s.WindowLine, s.StatLine
}

// wirePaletteRAM mirrors paletteRAM with exported fields: gob silently
// drops unexported struct fields, so State routes palette RAM through this
// instead of encoding paletteRAM directly.
type wirePaletteRAM struct {
	Bytes [64]uint8
	Index uint8
	Auto  bool
}

type wireState struct {
	VRAM     [2][0x2000]uint8
	VRAMBank uint8
	OAM      [160]uint8

	LCDC, STAT      uint8
	SCY, SCX        uint8
	LY, LYC         uint8
	WY, WX          uint8
	BGP, OBP0, OBP1 uint8

	BGPalette  wirePaletteRAM
	OBJPalette wirePaletteRAM

	Dot        int
	Mode       Mode
	WindowLine int
	StatLine   bool
}

// GobEncode implements gob.GobEncoder.
func (s State) GobEncode() ([]byte, error) {
	w := wireState{
		VRAM: s.VRAM, VRAMBank: s.VRAMBank, OAM: s.OAM,
		LCDC: s.LCDC, STAT: s.STAT,
		SCY: s.SCY, SCX: s.SCX,
		LY: s.LY, LYC: s.LYC,
		WY: s.WY, WX: s.WX,
		BGP: s.BGP, OBP0: s.OBP0, OBP1: s.OBP1,
		BGPalette:  wirePaletteRAM{s.BGPalette.bytes, s.BGPalette.index, s.BGPalette.auto},
		OBJPalette: wirePaletteRAM{s.OBJPalette.bytes, s.OBJPalette.index, s.OBJPalette.auto},
		Dot:        s.Dot, Mode: s.Mode, WindowLine: s.WindowLine, StatLine: s.StatLine,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (s *State) GobDecode(data []byte) error {
	var w wireState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	s.VRAM, s.VRAMBank, s.OAM = w.VRAM, w.VRAMBank, w.OAM
	s.LCDC, s.STAT = w.LCDC, w.STAT
	s.SCY, s.SCX = w.SCY, w.SCX
	s.LY, s.LYC = w.LY, w.LYC
	s.WY, s.WX = w.WY, w.WX
	s.BGP, s.OBP0, s.OBP1 = w.BGP, w.OBP0, w.OBP1
	s.BGPalette = paletteRAM{w.BGPalette.Bytes, w.BGPalette.Index, w.BGPalette.Auto}
	s.OBJPalette = paletteRAM{w.OBJPalette.Bytes, w.OBJPalette.Index, w.OBJPalette.Auto}
	s.Dot, s.Mode, s.WindowLine, s.StatLine = w.Dot, w.Mode, w.WindowLine, w.StatLine
	return nil
}
