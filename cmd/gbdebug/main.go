// Command gbdebug is a fyne-based inspector: it runs a ROM the same as
// gbcore but alongside a live view of CPU/PPU/timer registers and a
// button to copy the current save state to the clipboard as base64, for
// poking at emulation bugs interactively rather than staring at logs.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/dmgcore/gbcore/internal/gameboy"
	"github.com/dmgcore/gbcore/internal/romloader"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbdebug"
	app.Description = "An interactive register/PPU inspector for gbcore"
	app.Usage = "gbdebug [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to the ROM file"},
		cli.BoolFlag{Name: "force-dmg", Usage: "run a CGB-flagged cartridge in DMG compatibility mode"},
		cli.IntFlag{Name: "scale", Usage: "integer window scale factor", Value: 3},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("gbdebug exited with an error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}
	if romPath == "" {
		cli.ShowAppHelp(c)
		return fmt.Errorf("gbdebug: no ROM path provided")
	}

	rom, err := romloader.Open(romPath)
	if err != nil {
		return fmt.Errorf("gbdebug: %w", err)
	}
	core, err := gameboy.New(rom.Data, c.Bool("force-dmg"))
	if err != nil {
		return fmt.Errorf("gbdebug: %w", err)
	}

	scale := c.Int("scale")
	if scale < 1 {
		scale = 1
	}
	runInspector(core, scale)
	return nil
}
