package conformance

import (
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/dmgcore/gbcore/internal/gameboy"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/romloader"
)

// Acid2Result is the outcome of rendering an acid2 ROM and comparing its
// settled framebuffer against a reference image.
type Acid2Result struct {
	ROM         string
	Match       bool
	FrameSHA256 [32]byte
	DiffImage   *image.RGBA // non-nil only when Match is false
}

// RunAcid2 loads rom, runs it for settle (the acid2 ROMs render their test
// pattern once at boot and then sit idle, so ~1s is ample), and compares
// the resulting framebuffer to the PNG at referenceImage pixel-for-pixel.
// A nil DiffImage means either a perfect match or a reference image whose
// size differs from the 160x144 frame.
func RunAcid2(romPath, referenceImage string, forceDMG bool, settle time.Duration) (Acid2Result, error) {
	rom, err := romloader.Open(romPath)
	if err != nil {
		return Acid2Result{}, fmt.Errorf("conformance: %w", err)
	}
	core, err := gameboy.New(rom.Data, forceDMG)
	if err != nil {
		return Acid2Result{}, fmt.Errorf("conformance: %w", err)
	}

	ran := time.Duration(0)
	for ran < settle {
		core.StepFor(time.Second / 60)
		ran += time.Second / 60
	}

	got := framebufferToImage(core.Frame())

	f, err := os.Open(referenceImage)
	if err != nil {
		return Acid2Result{}, fmt.Errorf("conformance: open reference image: %w", err)
	}
	defer f.Close()
	want, err := png.Decode(f)
	if err != nil {
		return Acid2Result{}, fmt.Errorf("conformance: decode reference image: %w", err)
	}

	result := Acid2Result{ROM: romPath, FrameSHA256: sha256.Sum256(got.Pix)}
	diff, diffImg := compareImages(got, want)
	result.Match = diff == 0
	if !result.Match {
		result.DiffImage = diffImg
	}
	return result, nil
}

// framebufferToImage converts the core's packed 0xAARRGGBB pixels into a
// standard image.RGBA so it can be compared against a decoded PNG with the
// stdlib image/color machinery instead of hand-rolled pixel math.
func framebufferToImage(fb *[ppu.ScreenWidth * ppu.ScreenHeight]uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	for i, px := range fb {
		img.Pix[i*4+0] = byte(px >> 16)
		img.Pix[i*4+1] = byte(px >> 8)
		img.Pix[i*4+2] = byte(px)
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

// compareImages accumulates the squared per-channel difference between
// every pixel of got and want, returning a non-zero total and a red-marked
// diff image on any mismatch. Mirrors the teacher pack's own acid2
// image-diff approach rather than a bare byte-slice comparison, so a
// failure report can show exactly which pixels disagree.
func compareImages(got, want image.Image) (int64, *image.RGBA) {
	b := got.Bounds()
	if b != want.Bounds() {
		return math.MaxInt64, nil
	}

	var total int64
	diff := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, a1 := got.At(x, y).RGBA()
			r2, g2, b2, a2 := want.At(x, y).RGBA()
			d := sqDiff(r1, r2) + sqDiff(g1, g2) + sqDiff(b1, b2) + sqDiff(a1, a2)
			if d > 0 {
				total += int64(d)
				diff.Set(x, y, color.RGBA{R: 255, A: 255})
			}
		}
	}
	if total == 0 {
		return 0, nil
	}
	return total, diff
}

func sqDiff(x, y uint32) uint64 {
	var d int64
	if x > y {
		d = int64(x - y)
	} else {
		d = int64(y - x)
	}
	return uint64(d * d)
}
