package conformance

import (
	"os"
	"testing"
	"time"
)

// These tests drive the actual Blargg/acid2 test ROMs named in spec.md §8.
// The ROM and reference-image fixtures are not vendored into this module
// (they're redistributable but not ours to bundle); each test skips
// itself when its fixture isn't present on disk rather than failing, so
// the suite still runs clean in an environment that hasn't fetched them.

const blarggBudget = 4194304 * 30 // 30 seconds of T-cycles is ample for any Blargg sub-test

func skipIfMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Skipf("fixture not present: %s", path)
	}
}

func TestBlarggCPUInstrs(t *testing.T) {
	path := "testdata/cpu_instrs.gb"
	skipIfMissing(t, path)

	result, err := RunBlargg(path, blarggBudget)
	if err != nil {
		t.Fatalf("RunBlargg: %v", err)
	}
	if result.TimedOut {
		t.Fatalf("cpu_instrs did not report a result within %d T-cycles; output so far: %q", blarggBudget, result.Output)
	}
	if !result.Passed {
		t.Fatalf("cpu_instrs failed: %q", result.Output)
	}
}

func TestBlarggInstrTiming(t *testing.T) {
	path := "testdata/instr_timing.gb"
	skipIfMissing(t, path)

	result, err := RunBlargg(path, blarggBudget)
	if err != nil {
		t.Fatalf("RunBlargg: %v", err)
	}
	if !result.Passed {
		t.Fatalf("instr_timing failed: %q", result.Output)
	}
}

func TestBlarggMemTiming(t *testing.T) {
	for _, name := range []string{"mem_timing.gb", "mem_timing-2.gb"} {
		path := "testdata/" + name
		skipIfMissing(t, path)

		result, err := RunBlargg(path, blarggBudget)
		if err != nil {
			t.Fatalf("RunBlargg(%s): %v", name, err)
		}
		if !result.Passed {
			t.Fatalf("%s failed: %q", name, result.Output)
		}
	}
}

func TestDMGAcid2(t *testing.T) {
	rom := "testdata/dmg-acid2.gb"
	ref := "testdata/dmg-acid2-reference.png"
	skipIfMissing(t, rom)
	skipIfMissing(t, ref)

	result, err := RunAcid2(rom, ref, true, time.Second)
	if err != nil {
		t.Fatalf("RunAcid2: %v", err)
	}
	if !result.Match {
		t.Fatalf("dmg-acid2 framebuffer did not match the reference image (sha256 %x)", result.FrameSHA256)
	}
}

func TestCGBAcid2(t *testing.T) {
	rom := "testdata/cgb-acid2.gbc"
	ref := "testdata/cgb-acid2-reference.png"
	skipIfMissing(t, rom)
	skipIfMissing(t, ref)

	result, err := RunAcid2(rom, ref, false, time.Second)
	if err != nil {
		t.Fatalf("RunAcid2: %v", err)
	}
	if !result.Match {
		t.Fatalf("cgb-acid2 framebuffer did not match the reference image (sha256 %x)", result.FrameSHA256)
	}
}
