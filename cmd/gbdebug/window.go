package main

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"golang.design/x/clipboard"

	"github.com/dmgcore/gbcore/internal/debug"
	"github.com/dmgcore/gbcore/internal/gameboy"
	"github.com/dmgcore/gbcore/internal/ppu"
)

// registerLabels holds every canvas.Text the register panel refreshes each
// tick, grouped the way the teacher's own CPU debug view lays out AF/BC/
// DE/HL/SP/PC.
type registerLabels struct {
	af, bc, de, hl, sp, pc *canvas.Text
	ime                    *canvas.Text
	lcdc, stat, ly, lyc    *canvas.Text
	scx, scy, wx, wy       *canvas.Text
	div, tima, tma, tac    *canvas.Text
	mapper                 *canvas.Text
}

func newRegisterLabels() *registerLabels {
	mono := func() *canvas.Text {
		t := canvas.NewText("", color.White)
		t.TextStyle = fyne.TextStyle{Monospace: true}
		return t
	}
	return &registerLabels{
		af: mono(), bc: mono(), de: mono(), hl: mono(), sp: mono(), pc: mono(),
		ime:  mono(),
		lcdc: mono(), stat: mono(), ly: mono(), lyc: mono(),
		scx: mono(), scy: mono(), wx: mono(), wy: mono(),
		div: mono(), tima: mono(), tma: mono(), tac: mono(),
		mapper: mono(),
	}
}

func labeled(name string, t *canvas.Text) *fyne.Container {
	return container.NewGridWithColumns(2, widget.NewLabel(name), t)
}

func (r *registerLabels) grid() *fyne.Container {
	return container.NewVBox(
		widget.NewLabelWithStyle("CPU", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		labeled("AF", r.af), labeled("BC", r.bc), labeled("DE", r.de), labeled("HL", r.hl),
		labeled("SP", r.sp), labeled("PC", r.pc), labeled("IME", r.ime),
		widget.NewLabelWithStyle("PPU", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		labeled("LCDC", r.lcdc), labeled("STAT", r.stat), labeled("LY", r.ly), labeled("LYC", r.lyc),
		labeled("SCX/SCY", r.scx), labeled("WX/WY", r.wx),
		widget.NewLabelWithStyle("Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		labeled("DIV", r.div), labeled("TIMA", r.tima), labeled("TMA", r.tma), labeled("TAC", r.tac),
		widget.NewLabelWithStyle("Mapper", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		labeled("", r.mapper),
	)
}

func (r *registerLabels) update(s debug.Snapshot) {
	r.af.Text = fmt.Sprintf("%04X", s.Registers.AF())
	r.bc.Text = fmt.Sprintf("%04X", s.Registers.BC())
	r.de.Text = fmt.Sprintf("%04X", s.Registers.DE())
	r.hl.Text = fmt.Sprintf("%04X", s.Registers.HL())
	r.sp.Text = fmt.Sprintf("%04X", s.Registers.SP)
	r.pc.Text = fmt.Sprintf("%04X", s.Registers.PC)
	r.ime.Text = fmt.Sprintf("%v", s.IME)
	r.lcdc.Text = fmt.Sprintf("%02X", s.PPU.LCDC)
	r.stat.Text = fmt.Sprintf("%02X", s.PPU.STAT)
	r.ly.Text = fmt.Sprintf("%d", s.PPU.LY)
	r.lyc.Text = fmt.Sprintf("%d", s.PPU.LYC)
	r.scx.Text = fmt.Sprintf("%d, %d", s.PPU.SCX, s.PPU.SCY)
	r.wx.Text = fmt.Sprintf("%d, %d", s.PPU.WX, s.PPU.WY)
	r.div.Text = fmt.Sprintf("%02X", s.Timer.DIV)
	r.tima.Text = fmt.Sprintf("%02X", s.Timer.TIMA)
	r.tma.Text = fmt.Sprintf("%02X", s.Timer.TMA)
	r.tac.Text = fmt.Sprintf("%02X", s.Timer.TAC)
	r.mapper.Text = fmt.Sprintf("%s %s", s.MapperKind, s.MapperState)

	for _, t := range []*canvas.Text{r.af, r.bc, r.de, r.hl, r.sp, r.pc, r.ime,
		r.lcdc, r.stat, r.ly, r.lyc, r.scx, r.wx, r.div, r.tima, r.tma, r.tac, r.mapper} {
		t.Refresh()
	}
}

// runInspector opens the fyne window and drives core at roughly 60Hz,
// refreshing the screen raster and register panel every tick. It blocks
// until the window is closed.
func runInspector(core *gameboy.Core, scale int) {
	a := app.New()
	w := a.NewWindow(fmt.Sprintf("gbdebug - %s", core.Header().Title))
	w.Resize(fyne.NewSize(float32(ppu.ScreenWidth*scale+220), float32(ppu.ScreenHeight*scale)))

	screen := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	raster := canvas.NewRasterFromImage(screen)
	raster.ScaleMode = canvas.ImageScalePixels
	raster.SetMinSize(fyne.NewSize(float32(ppu.ScreenWidth*scale), float32(ppu.ScreenHeight*scale)))

	labels := newRegisterLabels()

	copyState := widget.NewButton("Copy save state", func() {
		copySaveStateToClipboard(core)
	})
	sidePanel := container.NewVBox(labels.grid(), copyState)

	w.SetContent(container.NewHBox(raster, sidePanel))

	go func() {
		t := time.NewTicker(time.Second / 60)
		defer t.Stop()
		for range t.C {
			core.StepFor(time.Second / 60)

			fb := core.Frame()
			for i, px := range fb {
				screen.Pix[i*4+0] = byte(px >> 16)
				screen.Pix[i*4+1] = byte(px >> 8)
				screen.Pix[i*4+2] = byte(px)
				screen.Pix[i*4+3] = 0xFF
			}
			raster.Refresh()

			labels.update(debug.Capture(core))
		}
	}()

	w.ShowAndRun()
}

// copySaveStateToClipboard encodes the core's current save state as
// base64 text and writes it to the system clipboard, so a bug report can
// paste in an exact reproducible snapshot.
func copySaveStateToClipboard(core *gameboy.Core) {
	data, err := core.SaveState()
	if err != nil {
		return
	}
	if err := clipboard.Init(); err != nil {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(base64.StdEncoding.EncodeToString(data)))
}
