package conformance

import (
	"image"
	"image/color"
	"testing"
)

func TestSerialCaptureAccumulatesBytes(t *testing.T) {
	var s SerialCapture
	for _, b := range []byte("Passed\n") {
		s.ReceiveByte(b)
	}
	if s.String() != "Passed\n" {
		t.Fatalf("got %q, want %q", s.String(), "Passed\n")
	}
}

func TestRunRTCSanityOneHour(t *testing.T) {
	result := RunRTCSanity(3600)
	if !result.Passed {
		t.Fatalf("expected an hour of advancement to land on h=1 m=0 s=0, got h=%d m=%d s=%d",
			result.Hours, result.Minutes, result.Seconds)
	}
}

func TestRunRTCSanityOddSeconds(t *testing.T) {
	result := RunRTCSanity(3601)
	if result.Passed {
		t.Fatal("expected 3601s of advancement to leave a nonzero seconds field")
	}
	if result.Seconds != 1 {
		t.Fatalf("seconds got %d, want 1", result.Seconds)
	}
}

func TestCompareImagesIdentical(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0x20
	}
	diff, diffImg := compareImages(img, img)
	if diff != 0 || diffImg != nil {
		t.Fatalf("identical images should compare equal, got diff=%d", diff)
	}
}

func TestCompareImagesMismatch(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 2, 2))
	b := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range a.Pix {
		a.Pix[i] = 0
	}
	for i := range b.Pix {
		b.Pix[i] = 0
	}
	b.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})

	diff, diffImg := compareImages(a, b)
	if diff == 0 || diffImg == nil {
		t.Fatal("expected a mismatch to be detected")
	}
	if r, _, _, _ := diffImg.At(0, 0).RGBA(); r == 0 {
		t.Fatal("expected the differing pixel to be marked in the diff image")
	}
}

func TestFramebufferToImageConvertsPackedPixels(t *testing.T) {
	var fb [160 * 144]uint32
	fb[0] = 0xFF112233
	img := framebufferToImage(&fb)
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 0x11 || g>>8 != 0x22 || b>>8 != 0x33 || a>>8 != 0xFF {
		t.Fatalf("got rgba %04x %04x %04x %04x, want 0x11 0x22 0x33 0xFF scaled", r, g, b, a)
	}
}
