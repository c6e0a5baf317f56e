package bus

import "github.com/dmgcore/gbcore/internal/interrupts"

// readIO and writeIO dispatch the 0xFF00-0xFF7F I/O register window across
// the joypad, serial, timer, interrupt flag, APU, PPU, and (CGB-only) speed
// switch / VRAM-DMA / WRAM-bank registers.
func (b *Bus) readIO(addr uint16) uint8 {
	switch {
	case addr == 0xFF00:
		return b.Joypad.Read()
	case addr == 0xFF01:
		return b.Serial.ReadSB()
	case addr == 0xFF02:
		return b.Serial.ReadSC()
	case addr == 0xFF04:
		return b.Timer.ReadDIV()
	case addr == 0xFF05:
		return b.Timer.ReadTIMA()
	case addr == 0xFF06:
		return b.Timer.ReadTMA()
	case addr == 0xFF07:
		return b.Timer.ReadTAC()
	case addr == interrupts.FlagAddr:
		return b.IRQ.Read(addr)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.APU.ReadRegister(addr)
	case addr >= 0xFF40 && addr <= 0xFF45, addr >= 0xFF47 && addr <= 0xFF4B:
		return b.PPU.ReadRegister(addr)
	case addr == 0xFF46:
		return 0xFF // DMA register is write-only
	case addr == 0xFF4D:
		return b.readKEY1()
	case addr == 0xFF4F:
		return b.PPU.ReadRegister(addr)
	case addr == 0xFF51 || addr == 0xFF52 || addr == 0xFF53 || addr == 0xFF54:
		return 0xFF // HDMA source/dest registers are write-only
	case addr == 0xFF55:
		if b.cgb {
			return b.hdma.readControl()
		}
		return 0xFF
	case addr == 0xFF68 || addr == 0xFF69 || addr == 0xFF6A || addr == 0xFF6B:
		return b.PPU.ReadRegister(addr)
	case addr == 0xFF70:
		if b.cgb {
			return b.wramBank | 0xF8
		}
		return 0xFF
	}
	return 0xFF
}

func (b *Bus) writeIO(addr uint16, value uint8) {
	switch {
	case addr == 0xFF00:
		b.Joypad.Write(value)
	case addr == 0xFF01:
		b.Serial.WriteSB(value)
	case addr == 0xFF02:
		b.Serial.WriteSC(value)
	case addr == 0xFF04:
		b.Timer.WriteDIV(value)
	case addr == 0xFF05:
		b.Timer.WriteTIMA(value)
	case addr == 0xFF06:
		b.Timer.WriteTMA(value)
	case addr == 0xFF07:
		b.Timer.WriteTAC(value)
	case addr == interrupts.FlagAddr:
		b.IRQ.Write(addr, value)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.APU.WriteRegister(addr, value)
	case addr >= 0xFF40 && addr <= 0xFF45, addr >= 0xFF47 && addr <= 0xFF4B:
		b.PPU.WriteRegister(addr, value)
	case addr == 0xFF46:
		b.oam.start(value)
	case addr == 0xFF4D:
		b.writeKEY1(value)
	case addr == 0xFF4F:
		b.PPU.WriteRegister(addr, value)
	case addr == 0xFF51:
		if b.cgb {
			b.hdma.srcHi = value
		}
	case addr == 0xFF52:
		if b.cgb {
			b.hdma.srcLo = value
		}
	case addr == 0xFF53:
		if b.cgb {
			b.hdma.destHi = value
		}
	case addr == 0xFF54:
		if b.cgb {
			b.hdma.destLo = value
		}
	case addr == 0xFF55:
		if b.cgb {
			if blocked := b.hdma.writeControl(value, b.copyHDMABlock); blocked > 0 {
				b.Tick(blocked * 4)
			}
		}
	case addr == 0xFF68 || addr == 0xFF69 || addr == 0xFF6A || addr == 0xFF6B:
		b.PPU.WriteRegister(addr, value)
	case addr == 0xFF70:
		if b.cgb {
			b.wramBank = value & 0x07
		}
	}
}

// readKEY1 returns the CGB speed-switch register: bit 7 reflects the
// current speed, bit 0 is the armed flag set by a KEY1 write and cleared
// when STOP performs the switch.
func (b *Bus) readKEY1() uint8 {
	if !b.cgb {
		return 0xFF
	}
	v := uint8(0x7E)
	if b.doubleSpeed {
		v |= 0x80
	}
	if b.speedSwitchReq {
		v |= 0x01
	}
	return v
}

func (b *Bus) writeKEY1(value uint8) {
	if !b.cgb {
		return
	}
	b.speedSwitchReq = value&0x01 != 0
}
