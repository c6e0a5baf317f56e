package cpu

import (
	"testing"

	"github.com/dmgcore/gbcore/internal/apu"
	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/cartridge"
	"github.com/dmgcore/gbcore/internal/interrupts"
	"github.com/dmgcore/gbcore/internal/joypad"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/serial"
	"github.com/dmgcore/gbcore/internal/timer"
)

// newTestCPU wires a CPU to a full bus backed by a blank 32 KiB ROM-only
// cartridge, suitable for poking instructions directly into RAM/HRAM and
// executing them in isolation.
func newTestCPU(t *testing.T) *CPU {
	t.Helper()
	rom := make([]byte, 0x8000)
	cart, err := cartridge.Load(rom, nil)
	if err != nil {
		t.Fatalf("cartridge.Load: %v", err)
	}
	irq := interrupts.New()
	b := bus.New(cart, ppu.New(irq, false), apu.New(), timer.New(irq), serial.New(irq), joypad.New(irq), irq, false)
	return New(b)
}

// loadCode writes code into WRAM starting at 0xC000 and points PC at it;
// cartridge ROM is read-only, so WRAM stands in as writable "program memory"
// for these tests.
func (c *CPU) loadCode(code ...uint8) {
	for i, b := range code {
		c.bus.WriteByte(0xC000+uint16(i), b)
	}
	c.PC = 0xC000
}

func TestLD_RegisterToRegister(t *testing.T) {
	c := newTestCPU(t)
	c.B = 0x42
	c.loadCode(0x78) // LD A,B
	c.Step()
	if c.A != 0x42 {
		t.Errorf("A = %#02x, want 0x42", c.A)
	}
}

func TestLD_Immediate8(t *testing.T) {
	c := newTestCPU(t)
	c.loadCode(0x3E, 0x99) // LD A,d8
	c.Step()
	if c.A != 0x99 {
		t.Errorf("A = %#02x, want 0x99", c.A)
	}
	if c.PC != 0xC002 {
		t.Errorf("PC = %#04x, want 0xC002", c.PC)
	}
}

func TestINC_DEC_Flags(t *testing.T) {
	c := newTestCPU(t)
	c.A = 0xFF
	c.loadCode(0x3C) // INC A
	c.Step()
	if c.A != 0 {
		t.Errorf("A = %#02x, want 0", c.A)
	}
	if !c.flag(FlagZ) || !c.flag(FlagH) || c.flag(FlagN) {
		t.Errorf("F = %#02x, want Z and H set, N clear", c.F)
	}
}

func TestADD_SetsCarryAndHalfCarry(t *testing.T) {
	c := newTestCPU(t)
	c.A = 0xFF
	c.B = 0x01
	c.loadCode(0x80) // ADD A,B
	c.Step()
	if c.A != 0 {
		t.Errorf("A = %#02x, want 0", c.A)
	}
	if !c.flag(FlagZ) || !c.flag(FlagH) || !c.flag(FlagC) {
		t.Errorf("F = %#02x, want Z/H/C all set", c.F)
	}
}

func TestJR_ConditionalTaken(t *testing.T) {
	c := newTestCPU(t)
	c.setFlag(FlagZ, true)
	c.loadCode(0x28, 0x05) // JR Z,+5
	before := c.bus.TotalTicks()
	c.Step()
	if c.PC != 0xC002+5 {
		t.Errorf("PC = %#04x, want %#04x", c.PC, 0xC002+5)
	}
	if ticks := c.bus.TotalTicks() - before; ticks != 12 {
		t.Errorf("ticks = %d, want 12 (taken JR costs 3 M-cycles)", ticks)
	}
}

func TestJR_ConditionalNotTaken(t *testing.T) {
	c := newTestCPU(t)
	c.setFlag(FlagZ, false)
	c.loadCode(0x28, 0x05) // JR Z,+5
	before := c.bus.TotalTicks()
	c.Step()
	if c.PC != 0xC002 {
		t.Errorf("PC = %#04x, want 0xC002", c.PC)
	}
	if ticks := c.bus.TotalTicks() - before; ticks != 8 {
		t.Errorf("ticks = %d, want 8 (not-taken JR costs 2 M-cycles)", ticks)
	}
}

func TestPushPop(t *testing.T) {
	c := newTestCPU(t)
	c.SP = 0xDFFE
	c.setBC(0x1234)
	c.loadCode(0xC5, 0xD1) // PUSH BC; POP DE
	c.Step()
	c.Step()
	if c.de() != 0x1234 {
		t.Errorf("DE = %#04x, want 0x1234", c.de())
	}
	if c.SP != 0xDFFE {
		t.Errorf("SP = %#04x, want 0xDFFE", c.SP)
	}
}

func TestCALL_RET_RoundTrip(t *testing.T) {
	c := newTestCPU(t)
	c.SP = 0xDFFE
	c.loadCode(0xCD, 0x00, 0xD0) // CALL 0xD000
	c.bus.WriteByte(0xD000, 0xC9) // RET
	c.Step()
	if c.PC != 0xD000 {
		t.Errorf("PC = %#04x, want 0xD000", c.PC)
	}
	c.Step()
	if c.PC != 0xC003 {
		t.Errorf("PC = %#04x, want 0xC003 (return address)", c.PC)
	}
}

func TestCB_BitDoesNotWriteBack(t *testing.T) {
	c := newTestCPU(t)
	c.H, c.L = 0xC1, 0x00
	c.bus.WriteByte(0xC100, 0x00)
	c.loadCode(0xCB, 0x46) // BIT 0,(HL)
	c.Step()
	if !c.flag(FlagZ) {
		t.Errorf("expected Z set, bit 0 of 0 is clear")
	}
	if v := c.bus.ReadByte(0xC100); v != 0x00 {
		t.Errorf("BIT must not write back, (HL) = %#02x", v)
	}
}

func TestCB_SetAndRes(t *testing.T) {
	c := newTestCPU(t)
	c.B = 0x00
	c.loadCode(0xCB, 0xC0, 0xCB, 0x80) // SET 0,B; RES 0,B
	c.Step()
	if c.B != 0x01 {
		t.Errorf("B = %#02x after SET 0,B, want 0x01", c.B)
	}
	c.Step()
	if c.B != 0x00 {
		t.Errorf("B = %#02x after RES 0,B, want 0x00", c.B)
	}
}

func TestDAA_AfterBCDAdd(t *testing.T) {
	c := newTestCPU(t)
	c.A = 0x45
	c.B = 0x38
	c.loadCode(0x80, 0x27) // ADD A,B; DAA
	c.Step()
	c.Step()
	if c.A != 0x83 {
		t.Errorf("A = %#02x, want 0x83 (BCD 45+38)", c.A)
	}
}

func TestHALT_WakesOnPendingInterrupt(t *testing.T) {
	c := newTestCPU(t)
	c.bus.IRQ.Write(interrupts.EnableAddr, 0x01)
	c.bus.IRQ.Request(interrupts.VBlank)
	c.loadCode(0x76, 0x00) // HALT; NOP
	c.Step()
	if c.mode != modeNormal {
		t.Errorf("mode = %v, want modeNormal (interrupt already pending, HALT must not block)", c.mode)
	}
}

func TestSTOP_DMGWakesOnJoypad(t *testing.T) {
	c := newTestCPU(t)
	c.loadCode(0x10, 0x00) // STOP
	c.Step()
	if c.mode != modeStop {
		t.Fatalf("mode = %v, want modeStop", c.mode)
	}
	c.bus.IRQ.Request(interrupts.Joypad)
	c.Step()
	if c.mode != modeNormal {
		t.Errorf("mode = %v, want modeNormal after joypad IF bit set", c.mode)
	}
}
