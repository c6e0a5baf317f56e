// Command gbcore is an SDL2 frontend for the gbcore emulation library: it
// loads a ROM (optionally through an interactive file picker), runs it at
// real-time speed with audio and input, and persists battery RAM, RTC, and
// EEPROM save data alongside the ROM on exit.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sqweek/dialog"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbcore"
	app.Description = "A Game Boy / Game Boy Color emulator"
	app.Usage = "gbcore [options] [ROM file]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "path to the ROM file (a file picker is shown if omitted)",
		},
		cli.BoolFlag{
			Name:  "force-dmg",
			Usage: "run a CGB-flagged cartridge in DMG compatibility mode",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "run without opening a window, for conformance/benchmark use",
		},
		cli.StringFlag{
			Name:  "save-dir",
			Usage: "directory for battery/RTC/EEPROM/state sidecar files (default: alongside the ROM)",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "integer window scale factor",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  "compress-saves",
			Usage: "flate-compress the default save-state slot on disk",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("gbcore exited with an error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}
	if romPath == "" {
		picked, err := dialog.File().Filter("Game Boy ROM", "gb", "gbc", "zip", "7z", "gz", "xz").Title("Select a ROM").Load()
		if err != nil {
			cli.ShowAppHelp(c)
			return fmt.Errorf("gbcore: no ROM given and the file picker was cancelled: %w", err)
		}
		romPath = picked
	}
	if romPath == "" {
		return errors.New("gbcore: no ROM path provided")
	}

	opts := sessionOptions{
		romPath:       romPath,
		saveDir:       c.String("save-dir"),
		forceDMG:      c.Bool("force-dmg"),
		scale:         c.Int("scale"),
		compressSaves: c.Bool("compress-saves"),
	}
	if opts.scale < 1 {
		opts.scale = 1
	}

	sess, err := newSession(opts)
	if err != nil {
		return err
	}
	defer sess.persist()

	if c.Bool("headless") {
		return sess.runHeadless()
	}
	return sess.runWindowed()
}
