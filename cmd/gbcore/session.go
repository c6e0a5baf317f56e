package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dmgcore/gbcore/internal/apu"
	"github.com/dmgcore/gbcore/internal/gameboy"
	"github.com/dmgcore/gbcore/internal/romloader"
)

// sessionOptions collects the parsed command-line flags a session needs.
type sessionOptions struct {
	romPath       string
	saveDir       string
	forceDMG      bool
	scale         int
	compressSaves bool
}

// session owns one loaded ROM's emulator core together with the sidecar
// file paths its battery RAM, RTC, EEPROM, and save state persist to.
type session struct {
	core     *gameboy.Core
	sidecars romloader.Sidecars
	opts     sessionOptions
	log      *slog.Logger
}

func newSession(opts sessionOptions) (*session, error) {
	log := slog.Default().With("component", "gbcore", "rom", filepath.Base(opts.romPath))

	rom, err := romloader.Open(opts.romPath)
	if err != nil {
		return nil, fmt.Errorf("gbcore: %w", err)
	}

	core, err := gameboy.New(rom.Data, opts.forceDMG)
	if err != nil {
		return nil, fmt.Errorf("gbcore: %w", err)
	}

	sidecars := romloader.SidecarsFor(opts.romPath)
	if opts.saveDir != "" {
		sidecars = rehome(sidecars, opts.saveDir)
	}

	s := &session{core: core, sidecars: sidecars, opts: opts, log: log}
	s.loadSaveData()
	return s, nil
}

// rehome rewrites a Sidecars set to live under dir instead of alongside
// the ROM, keeping each file's base name.
func rehome(s romloader.Sidecars, dir string) romloader.Sidecars {
	rename := func(path string) string { return filepath.Join(dir, filepath.Base(path)) }
	return romloader.Sidecars{
		SRAM:   rename(s.SRAM),
		RTC:    rename(s.RTC),
		EEPROM: rename(s.EEPROM),
		State:  rename(s.State),
	}
}

// loadSaveData restores whichever sidecar files already exist. A missing
// file is expected for a first run and is silently skipped; any other
// error is logged but does not prevent the ROM from starting.
func (s *session) loadSaveData() {
	if data, err := os.ReadFile(s.sidecars.SRAM); err == nil {
		if err := s.core.LoadSRAM(data); err != nil {
			s.log.Warn("sram restore mismatch", "error", err)
		}
	}
	if data, err := os.ReadFile(s.sidecars.RTC); err == nil {
		if err := s.core.LoadRTC(data); err != nil {
			s.log.Warn("rtc restore failed", "error", err)
		}
	}
	if data, err := os.ReadFile(s.sidecars.EEPROM); err == nil {
		if err := s.core.LoadEEPROM(data); err != nil {
			s.log.Warn("eeprom restore failed", "error", err)
		}
	}
}

// persist writes every sidecar that has data to save: battery RAM, RTC,
// and EEPROM whenever the core returns data (non-nil) for them, and a save
// state into the default slot so the session can be resumed exactly where
// it left off.
func (s *session) persist() {
	if sram := s.core.SaveSRAM(); sram != nil {
		if err := os.WriteFile(s.sidecars.SRAM, sram, 0o644); err != nil {
			s.log.Warn("sram save failed", "error", err)
		}
	}
	if rtc := s.core.SaveRTC(); rtc != nil {
		if err := os.WriteFile(s.sidecars.RTC, rtc, 0o644); err != nil {
			s.log.Warn("rtc save failed", "error", err)
		}
	}
	if ee := s.core.SaveEEPROM(); ee != nil {
		if err := os.WriteFile(s.sidecars.EEPROM, ee, 0o644); err != nil {
			s.log.Warn("eeprom save failed", "error", err)
		}
	}

	state, err := s.core.SaveState()
	if err != nil {
		s.log.Warn("save state encode failed", "error", err)
		return
	}
	if s.opts.compressSaves {
		err = romloader.WriteCompressedState(s.sidecars.State, state)
	} else {
		err = os.WriteFile(s.sidecars.State, state, 0o644)
	}
	if err != nil {
		s.log.Warn("save state write failed", "error", err)
	}
}

// runHeadless drives the emulator at full speed with no window, for
// conformance-test and benchmark use; it runs until the process is
// killed, since there's no frame-rate pacing to bound it otherwise.
func (s *session) runHeadless() error {
	var drain [4096]apu.Sample
	for {
		s.core.StepFor(time.Second / 60)
		for s.core.DrainAudio(drain[:]) == len(drain) {
			// keep draining so the ring buffer never backs up
		}
	}
}
