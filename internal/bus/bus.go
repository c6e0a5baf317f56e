// Package bus implements the Game Boy's memory bus: the single dispatch
// point through which every CPU memory access reaches cartridge ROM/RAM,
// VRAM, WRAM, OAM, HRAM, and the I/O register space, and through which the
// shared peripherals (PPU, timer, serial, APU, DMA engines) are advanced
// in lock-step with CPU execution.
package bus

import (
	"bytes"
	"encoding/gob"

	"github.com/dmgcore/gbcore/internal/apu"
	"github.com/dmgcore/gbcore/internal/cartridge"
	"github.com/dmgcore/gbcore/internal/interrupts"
	"github.com/dmgcore/gbcore/internal/joypad"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/serial"
	"github.com/dmgcore/gbcore/internal/timer"
)

// Bus owns every peripheral and dispatches the full 64 KiB CPU address
// space across them. The CPU holds a *Bus; the Bus never references the
// CPU, so interrupts flow upward purely through the shared
// *interrupts.Controller rather than a back-pointer.
type Bus struct {
	Cart    *cartridge.Cartridge
	PPU     *ppu.PPU
	APU     *apu.APU
	Timer   *timer.Controller
	Serial  *serial.Controller
	Joypad  *joypad.Controller
	IRQ     *interrupts.Controller

	cgb bool

	wram     [8][0x1000]uint8
	wramBank uint8 // SVBK, effective bank for 0xD000-0xDFFF; 1-7, 0 behaves as 1
	hram     [127]uint8

	oam  oamDMA
	hdma hdma

	doubleSpeed    bool
	speedSwitchReq bool

	totalTicks int
}

// New returns a Bus wiring together the given peripherals. cgb selects
// CGB-only address decode behaviour (WRAM banking, HDMA, VBK).
func New(cart *cartridge.Cartridge, p *ppu.PPU, a *apu.APU, t *timer.Controller, s *serial.Controller, j *joypad.Controller, irq *interrupts.Controller, cgb bool) *Bus {
	return &Bus{
		Cart: cart, PPU: p, APU: a, Timer: t, Serial: s, Joypad: j, IRQ: irq,
		cgb: cgb, wramBank: 1,
	}
}

// ReadByte reads one byte from the full address space, advancing all
// peripherals by 4 T-cycles (one M-cycle) first, matching real hardware's
// access timing.
func (b *Bus) ReadByte(addr uint16) uint8 {
	b.Tick(4)
	return b.dispatchRead(addr)
}

// WriteByte writes one byte to the full address space, advancing all
// peripherals by 4 T-cycles first.
func (b *Bus) WriteByte(addr uint16, value uint8) {
	b.Tick(4)
	b.dispatchWrite(addr, value)
}

// Tick advances every peripheral by n T-cycles without performing a memory
// access. The CPU calls this directly for internal delay cycles (e.g.
// between decoding and the first memory access of some instructions).
func (b *Bus) Tick(n int) {
	b.totalTicks += n
	speed := 1
	if b.doubleSpeed {
		speed = 2
	}
	for i := 0; i < n; i++ {
		for s := 0; s < speed; s++ {
			prevMode := b.PPU.Mode()
			b.PPU.Tick()
			if prevMode != ppu.ModeHBlank && b.PPU.Mode() == ppu.ModeHBlank {
				b.hdma.hblankTransfer(b.copyHDMABlock)
			}
			b.Timer.Tick()
			b.Serial.Tick()
		}
		b.APU.Tick()
		b.oam.tick(b.readForDMA, b.PPU.WriteOAMRaw)
		b.PPU.SetOAMDMABlocked(b.oam.active)
	}
}

// dmaBlocking reports whether an OAM DMA transfer should make the CPU's
// view of the bus see 0xFF outside HRAM/IE, matching real hardware's
// "only HRAM is safe to access during OAM DMA" behaviour.
func (b *Bus) dmaBlocking(addr uint16) bool {
	return b.oam.active && !(addr >= 0xFF80 && addr <= 0xFFFE) && addr != 0xFFFF
}

func (b *Bus) dispatchRead(addr uint16) uint8 {
	if b.dmaBlocking(addr) {
		return 0xFF
	}
	switch {
	case addr < 0x8000:
		return b.Cart.ReadROM(addr)
	case addr < 0xA000:
		return b.PPU.ReadVRAM(addr)
	case addr < 0xC000:
		return b.Cart.ReadRAM(addr)
	case addr < 0xD000:
		return b.wram[0][addr&0x0FFF]
	case addr < 0xE000:
		return b.wram[b.effectiveWRAMBank()][addr&0x0FFF]
	case addr < 0xF000:
		return b.wram[0][addr&0x0FFF] // echo of 0xC000-0xCFFF
	case addr < 0xFE00:
		return b.wram[b.effectiveWRAMBank()][addr&0x0FFF] // echo of 0xD000-0xDDFF
	case addr < 0xFEA0:
		return b.PPU.ReadOAM(addr)
	case addr < 0xFF00:
		return 0xFF // unusable
	case addr < 0xFF80:
		return b.readIO(addr)
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.IRQ.Read(addr)
	}
}

func (b *Bus) dispatchWrite(addr uint16, value uint8) {
	if b.dmaBlocking(addr) {
		return
	}
	switch {
	case addr < 0x8000:
		b.Cart.WriteROM(addr, value)
	case addr < 0xA000:
		b.PPU.WriteVRAM(addr, value)
	case addr < 0xC000:
		b.Cart.WriteRAM(addr, value)
	case addr < 0xD000:
		b.wram[0][addr&0x0FFF] = value
	case addr < 0xE000:
		b.wram[b.effectiveWRAMBank()][addr&0x0FFF] = value
	case addr < 0xF000:
		b.wram[0][addr&0x0FFF] = value
	case addr < 0xFE00:
		b.wram[b.effectiveWRAMBank()][addr&0x0FFF] = value
	case addr < 0xFEA0:
		b.PPU.WriteOAM(addr, value)
	case addr < 0xFF00:
		// unusable, writes ignored
	case addr < 0xFF80:
		b.writeIO(addr, value)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	default:
		b.IRQ.Write(addr, value)
	}
}

func (b *Bus) effectiveWRAMBank() uint8 {
	if !b.cgb {
		return 1
	}
	if b.wramBank == 0 {
		return 1
	}
	return b.wramBank
}

// readForDMA reads a byte for the OAM DMA copy source. It bypasses the
// per-access tick (the DMA engine's own ticking already accounts for
// time) and is not itself subject to DMA blocking.
func (b *Bus) readForDMA(addr uint16) uint8 {
	switch {
	case addr < 0x8000:
		return b.Cart.ReadROM(addr)
	case addr < 0xA000:
		return b.PPU.ReadVRAMRaw(b.PPU.VRAMBank(), addr)
	case addr < 0xC000:
		return b.Cart.ReadRAM(addr)
	case addr < 0xE000:
		bank := uint8(0)
		if addr >= 0xD000 {
			bank = b.effectiveWRAMBank()
		}
		return b.wram[bank][addr&0x0FFF]
	default:
		return 0xFF
	}
}

// copyHDMABlock copies one 16-byte HDMA block directly from source to the
// CGB VRAM bank selected by VBK, bypassing PPU mode blocking (the transfer
// itself is what's landing the bytes).
func (b *Bus) copyHDMABlock(src, dest uint16) {
	for i := uint16(0); i < 16; i++ {
		v := b.readForDMA(src + i)
		b.PPU.WriteVRAMRaw(b.PPU.VRAMBank(), dest+i-0x8000, v)
	}
}

// DoubleSpeed reports whether the CGB double-speed mode is active.
func (b *Bus) DoubleSpeed() bool { return b.doubleSpeed }

// HasPendingSpeedSwitch reports whether STOP should perform a speed
// switch rather than a true stop (CGB only, KEY1 bit 0 armed).
func (b *Bus) HasPendingSpeedSwitch() bool { return b.cgb && b.speedSwitchReq }

// PerformSpeedSwitch toggles double-speed mode, as triggered by STOP when
// KEY1 bit 0 is armed.
func (b *Bus) PerformSpeedSwitch() {
	b.doubleSpeed = !b.doubleSpeed
	b.speedSwitchReq = false
}

// CGB reports whether the bus is running in Game Boy Color mode.
func (b *Bus) CGB() bool { return b.cgb }

// TotalTicks returns the number of T-cycles ticked since the bus was
// created, used by the CPU to measure how long a Step took.
func (b *Bus) TotalTicks() int { return b.totalTicks }

// State is the serializable snapshot of everything the bus owns directly:
// WRAM, HRAM, the WRAM bank register, the DMA engines, and the CGB speed
// state. It does not include the cartridge, PPU, APU, timer, serial, or
// joypad state, each of which is saved and restored independently.
type State struct {
	WRAM     [8][0x1000]uint8
	WRAMBank uint8
	HRAM     [127]uint8

	OAM  oamDMA
	HDMA hdma

	DoubleSpeed    bool
	SpeedSwitchReq bool

	TotalTicks int
}

// Save returns a snapshot of the bus's own state.
func (b *Bus) Save() State {
	return State{
		WRAM:           b.wram,
		WRAMBank:       b.wramBank,
		HRAM:           b.hram,
		OAM:            b.oam,
		HDMA:           b.hdma,
		DoubleSpeed:    b.doubleSpeed,
		SpeedSwitchReq: b.speedSwitchReq,
		TotalTicks:     b.totalTicks,
	}
}

// Restore replaces the bus's own state with a previously saved snapshot.
func (b *Bus) Restore(s State) {
	b.wram = s.WRAM
	b.wramBank = s.WRAMBank
	b.hram = s.HRAM
	b.oam = s.OAM
	b.hdma = s.HDMA
	b.doubleSpeed = s.DoubleSpeed
	b.speedSwitchReq = s.SpeedSwitchReq
	b.totalTicks = s.TotalTicks
}

// wireOAMDMA and wireHDMA mirror oamDMA/hdma with exported fields: gob
// silently drops unexported struct fields, so State's GobEncode/GobDecode
// route through these instead of encoding oamDMA/hdma directly.
type wireOAMDMA struct {
	Active     bool
	SourceBase uint16
	BytesDone  int
	TCycles    int
}

type wireHDMA struct {
	SrcHi, SrcLo   uint8
	DestHi, DestLo uint8
	Active         bool
	Mode           hdmaMode
	BlocksLeft     int
}

type wireState struct {
	WRAM     [8][0x1000]uint8
	WRAMBank uint8
	HRAM     [127]uint8

	OAM  wireOAMDMA
	HDMA wireHDMA

	DoubleSpeed    bool
	SpeedSwitchReq bool

	TotalTicks int
}

// GobEncode implements gob.GobEncoder.
func (s State) GobEncode() ([]byte, error) {
	w := wireState{
		WRAM: s.WRAM, WRAMBank: s.WRAMBank, HRAM: s.HRAM,
		OAM:  wireOAMDMA{s.OAM.active, s.OAM.sourceBase, s.OAM.bytesDone, s.OAM.tCycles},
		HDMA: wireHDMA{s.HDMA.srcHi, s.HDMA.srcLo, s.HDMA.destHi, s.HDMA.destLo, s.HDMA.active, s.HDMA.mode, s.HDMA.blocksLeft},
		DoubleSpeed: s.DoubleSpeed, SpeedSwitchReq: s.SpeedSwitchReq,
		TotalTicks: s.TotalTicks,
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
	s.WRAM, s.WRAMBank, s.HRAM = w.WRAM, w.WRAMBank, w.HRAM
	s.OAM = oamDMA{active: w.OAM.Active, sourceBase: w.OAM.SourceBase, bytesDone: w.OAM.BytesDone, tCycles: w.OAM.TCycles}
	s.HDMA = hdma{srcHi: w.HDMA.SrcHi, srcLo: w.HDMA.SrcLo, destHi: w.HDMA.DestHi, destLo: w.HDMA.DestLo, active: w.HDMA.Active, mode: w.HDMA.Mode, blocksLeft: w.HDMA.BlocksLeft}
	s.DoubleSpeed, s.SpeedSwitchReq = w.DoubleSpeed, w.SpeedSwitchReq
	s.TotalTicks = w.TotalTicks
	return nil
}
