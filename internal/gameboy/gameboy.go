// Package gameboy owns the whole emulated console as a single value and
// exposes the host-facing API a frontend drives: stepping simulated time,
// reading the finished frame, draining audio, forwarding button input, and
// saving/loading state. There is no global mutable state anywhere in the
// core: two *Core values can run side by side without interfering.
package gameboy

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash"

	"github.com/dmgcore/gbcore/internal/apu"
	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/cartridge"
	"github.com/dmgcore/gbcore/internal/cartridge/mbc"
	"github.com/dmgcore/gbcore/internal/cpu"
	"github.com/dmgcore/gbcore/internal/interrupts"
	"github.com/dmgcore/gbcore/internal/joypad"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/serial"
	"github.com/dmgcore/gbcore/internal/timer"
)

// tCyclesPerSecond is the Game Boy's fixed master clock rate; StepFor uses
// it to convert a wall-clock duration into a T-cycle budget.
const tCyclesPerSecond = 4194304

// StateError is returned by LoadState when a snapshot cannot be decoded or
// was taken against a different cartridge.
type StateError struct {
	msg string
}

func (e *StateError) Error() string { return e.msg }

// StepResult reports what happened during a StepFor call.
type StepResult struct {
	// FrameReady is true if a new frame completed during this step.
	FrameReady bool
	// TCyclesRun is the number of T-cycles actually executed.
	TCyclesRun int
}

// Core owns one complete emulated Game Boy: the CPU, the bus, and every
// peripheral reachable through it. It carries no reference to any host
// resource (window, audio device, file system); those are the caller's
// responsibility.
type Core struct {
	cpu *cpu.CPU
	bus *bus.Bus

	cart    *cartridge.Cartridge
	romHash uint64

	log *slog.Logger
}

// New constructs a Core from a raw ROM image. forceDMG runs even a
// CGB-flagged cartridge in DMG compatibility mode; otherwise CGB mode is
// selected from the cartridge header's CGB flag byte.
func New(rom []byte, forceDMG bool) (*Core, error) {
	if len(rom) < 0x150 {
		return nil, fmt.Errorf("gameboy: rom image too small (%d bytes) to contain a header", len(rom))
	}
	cart, err := cartridge.Load(rom, nil)
	if err != nil {
		return nil, fmt.Errorf("gameboy: %w", err)
	}

	cgb := !forceDMG && cart.Header.ColorSupport != cartridge.DMGOnly

	irq := interrupts.New()
	p := ppu.New(irq, cgb)
	a := apu.New()
	t := timer.New(irq)
	s := serial.New(irq)
	j := joypad.New(irq)
	b := bus.New(cart, p, a, t, s, j, irq, cgb)
	c := cpu.New(b)
	c.PostBoot(cgb)

	core := &Core{
		cpu:     c,
		bus:     b,
		cart:    cart,
		romHash: xxhash.Sum64(rom),
		log:     slog.Default().With("component", "gameboy"),
	}
	core.log.Info("rom loaded", "title", cart.Header.Title, "cgb", cgb, "mbc", fmt.Sprintf("%T", cart.Mapper))
	return core, nil
}

// SetSerialSink installs a pluggable serial output sink (used by
// conformance test-ROMs to capture printed output) that observes each
// transferred byte; SB still reads back 0xFF after the transfer, as with
// no peer connected.
func (c *Core) SetSerialSink(sink serial.Sink) { c.bus.Serial.SetSink(sink) }

// StepFor advances the emulator by approximately d of simulated time,
// stopping early as soon as a frame completes so the caller can present
// it promptly; call StepFor again with the remaining duration to catch up.
func (c *Core) StepFor(d time.Duration) StepResult {
	budget := int(d.Seconds() * tCyclesPerSecond)
	ran := 0
	c.bus.PPU.FrameReady = false
	for ran < budget {
		ran += c.cpu.Step()
		if c.bus.HasPendingSpeedSwitch() {
			c.bus.PerformSpeedSwitch()
		}
		if c.bus.PPU.FrameReady {
			break
		}
	}
	return StepResult{FrameReady: c.bus.PPU.FrameReady, TCyclesRun: ran}
}

// Frame returns the most recently completed 160x144 framebuffer, encoded
// as 0xAARRGGBB per pixel. The returned pointer aliases the Core's
// internal buffer and is only valid until the next StepFor call.
func (c *Core) Frame() *[ppu.ScreenWidth * ppu.ScreenHeight]uint32 {
	return &c.bus.PPU.Framebuffer
}

// DrainAudio copies up to len(dst) stereo samples generated since the last
// call into dst, returning how many were written.
func (c *Core) DrainAudio(dst []apu.Sample) int {
	return c.bus.APU.Drain(dst)
}

// SetButton forwards a button press or release from the host.
func (c *Core) SetButton(b joypad.Button, pressed bool) {
	if pressed {
		c.bus.Joypad.Press(b)
	} else {
		c.bus.Joypad.Release(b)
	}
}

// SetAccelerometer forwards host tilt input to an MBC7 cartridge; a no-op
// for any other mapper.
func (c *Core) SetAccelerometer(x, y int16) { c.cart.SetAccelerometer(x, y) }

// snapshot is the gob-encoded shape of a full save state. romHash ties the
// snapshot to the cartridge it was taken against so LoadState can refuse a
// save from a different game rather than silently producing garbage.
type snapshot struct {
	ROMHash uint64

	CPU     cpu.State
	Bus     bus.State
	PPU     ppu.State
	APU     apu.State
	Timer   timer.State
	Serial  serial.State
	Joypad  joypad.State
	IRQ     interrupts.State
	Mapper  cartridge.MapperState
}

// SaveState serializes the Core's complete, deterministic state (CPU, bus,
// every peripheral, and the cartridge mapper's bank-select registers) to a
// byte slice. External RAM, RTC, and EEPROM contents are not included;
// persist those separately via SaveSRAM/SaveRTC/SaveEEPROM since hosts
// commonly want to keep them outliving any one save-state slot.
func (c *Core) SaveState() ([]byte, error) {
	snap := snapshot{
		ROMHash: c.romHash,
		CPU:     c.cpu.Save(),
		Bus:     c.bus.Save(),
		PPU:     c.bus.PPU.Save(),
		APU:     c.bus.APU.Save(),
		Timer:   c.bus.Timer.Save(),
		Serial:  c.bus.Serial.Save(),
		Joypad:  c.bus.Joypad.Save(),
		IRQ:     c.bus.IRQ.Save(),
		Mapper:  c.cart.Save(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("gameboy: encode save state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadState restores a snapshot previously produced by SaveState. It
// refuses (returning a *StateError) a snapshot taken against a different
// ROM, identified by its content hash.
func (c *Core) LoadState(data []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return &StateError{fmt.Sprintf("gameboy: decode save state: %v", err)}
	}
	if snap.ROMHash != c.romHash {
		return &StateError{"gameboy: save state does not match the loaded cartridge"}
	}
	c.cpu.Restore(snap.CPU)
	c.bus.Restore(snap.Bus)
	c.bus.PPU.Restore(snap.PPU)
	c.bus.APU.Restore(snap.APU)
	c.bus.Timer.Restore(snap.Timer)
	c.bus.Serial.Restore(snap.Serial)
	c.bus.Joypad.Restore(snap.Joypad)
	c.bus.IRQ.Restore(snap.IRQ)
	c.cart.Restore(snap.Mapper)
	c.log.Info("state loaded", "rom_hash", snap.ROMHash)
	return nil
}

// SaveSRAM returns the cartridge's battery-backed external RAM for
// persisting as a sibling .srm file, or nil if this cartridge has none.
func (c *Core) SaveSRAM() []byte {
	if !c.cart.HasBattery() {
		return nil
	}
	return c.cart.RAM()
}

// LoadSRAM restores previously persisted external RAM.
func (c *Core) LoadSRAM(data []byte) error {
	if err := c.cart.LoadRAM(data); err != nil {
		c.log.Warn("sram load mismatch", "error", err)
		return err
	}
	return nil
}

// SaveRTC returns the cartridge's real-time clock state for persisting as a
// sibling .rtc file, or nil if this cartridge has no RTC (anything but
// MBC3 with the timer flag set).
func (c *Core) SaveRTC() []byte {
	rtc := c.cart.RTC()
	if rtc == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rtc.Save()); err != nil {
		c.log.Warn("rtc encode failed", "error", err)
		return nil
	}
	return buf.Bytes()
}

// LoadRTC restores a previously persisted RTC snapshot. It is a no-op if
// this cartridge has no RTC.
func (c *Core) LoadRTC(data []byte) error {
	rtc := c.cart.RTC()
	if rtc == nil {
		return nil
	}
	var st mbc.State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("gameboy: decode rtc state: %w", err)
	}
	rtc.Restore(st)
	return nil
}

// SaveEEPROM returns the cartridge's EEPROM contents for persisting as a
// sibling .eeprom file, or nil if this cartridge has none (anything but
// MBC7).
func (c *Core) SaveEEPROM() []byte {
	ee := c.cart.EEPROM()
	if ee == nil {
		return nil
	}
	words := ee.Words()
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		buf[i*2] = byte(w)
		buf[i*2+1] = byte(w >> 8)
	}
	return buf
}

// LoadEEPROM restores previously persisted EEPROM contents. It is a no-op
// if this cartridge has no EEPROM.
func (c *Core) LoadEEPROM(data []byte) error {
	ee := c.cart.EEPROM()
	if ee == nil {
		return nil
	}
	var words [128]uint16
	if len(data) != len(words)*2 {
		return fmt.Errorf("gameboy: eeprom file length %d does not match expected %d", len(data), len(words)*2)
	}
	for i := range words {
		words[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}
	ee.LoadWords(words)
	return nil
}

// Header exposes the parsed cartridge header, mostly for host UI display.
func (c *Core) Header() cartridge.Header { return c.cart.Header }

// CGB reports whether the Core is running in Game Boy Color mode.
func (c *Core) CGB() bool { return c.bus.CGB() }

// CPU exposes the Core's CPU for read-only introspection (register/debug
// tooling); mutating it directly is the caller's responsibility to do
// safely.
func (c *Core) CPU() *cpu.CPU { return c.cpu }

// Bus exposes the Core's memory bus and every peripheral reachable through
// its exported fields, for the same introspection purposes as CPU.
func (c *Core) Bus() *bus.Bus { return c.bus }
