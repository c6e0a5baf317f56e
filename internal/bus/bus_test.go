package bus

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"testing"

	"github.com/dmgcore/gbcore/internal/apu"
	"github.com/dmgcore/gbcore/internal/cartridge"
	"github.com/dmgcore/gbcore/internal/interrupts"
	"github.com/dmgcore/gbcore/internal/joypad"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/serial"
	"github.com/dmgcore/gbcore/internal/timer"
)

func newTestBus(t *testing.T, cgb bool) *Bus {
	t.Helper()
	rom := make([]byte, 0x8000)
	cart, err := cartridge.Load(rom, nil)
	if err != nil {
		t.Fatalf("cartridge.Load: %v", err)
	}
	irq := interrupts.New()
	return New(cart, ppu.New(irq, cgb), apu.New(), timer.New(irq), serial.New(irq), joypad.New(irq), irq, cgb)
}

// TestSaveRestoreRoundTrip exercises State's GobEncode/GobDecode directly,
// which is what catches a regression reintroducing the gob
// unexported-field pitfall: a struct-typed field with no exported fields
// of its own silently encodes as zero.
func TestSaveRestoreRoundTrip(t *testing.T) {
	b := newTestBus(t, true)

	b.wram[3][10] = 0xAB
	b.wramBank = 5
	b.hram[0] = 0x42
	b.WriteByte(0xFF46, 0xC0) // start an OAM DMA from 0xC000
	b.Tick(4)                 // advance the DMA engine partway through
	b.hdma = hdma{srcHi: 0x12, srcLo: 0x34, destHi: 0x80, destLo: 0x00, active: true, mode: hdmaHBlank, blocksLeft: 5}
	b.doubleSpeed = true
	b.speedSwitchReq = true
	b.totalTicks = 123456

	want := b.Save()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&want); err != nil {
		t.Fatalf("gob encode: %v", err)
	}
	var got State
	if err := gob.NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("gob decode: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}

	other := newTestBus(t, true)
	other.Restore(got)
	if !reflect.DeepEqual(b.Save(), other.Save()) {
		t.Fatal("Restore did not reproduce the original bus state")
	}
}
