package main

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/dmgcore/gbcore/internal/apu"
	"github.com/dmgcore/gbcore/internal/joypad"
	"github.com/dmgcore/gbcore/internal/ppu"
)

// keyMap associates an SDL scancode with the joypad button it drives.
// Arrow keys for direction, Z/X for A/B (the common Game Boy emulator
// convention), Enter/RShift for Start/Select.
var keyMap = map[sdl.Scancode]joypad.Button{
	sdl.SCANCODE_UP:     joypad.Up,
	sdl.SCANCODE_DOWN:   joypad.Down,
	sdl.SCANCODE_LEFT:   joypad.Left,
	sdl.SCANCODE_RIGHT:  joypad.Right,
	sdl.SCANCODE_Z:      joypad.A,
	sdl.SCANCODE_X:      joypad.B,
	sdl.SCANCODE_RETURN: joypad.Start,
	sdl.SCANCODE_RSHIFT: joypad.Select,
}

// window wraps the SDL resources a windowed session needs: a texture
// streamed from the core's framebuffer each frame, and an audio device
// samples are queued to with simple backpressure.
type window struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audioDev sdl.AudioDeviceID

	pixels []byte
	audio  []byte
}

func newWindow(title string, scale int) (*window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")

	w := int32(ppu.ScreenWidth * scale)
	h := int32(ppu.ScreenHeight * scale)

	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, w, h, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		win.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGB888, sdl.TEXTUREACCESS_STREAMING, ppu.ScreenWidth, ppu.ScreenHeight)
	if err != nil {
		renderer.Destroy()
		win.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("create texture: %w", err)
	}

	var audioDev sdl.AudioDeviceID
	spec := sdl.AudioSpec{Freq: 44100, Format: sdl.AUDIO_F32, Channels: 2, Samples: 1024}
	if dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0); err != nil {
		audioDev = 0
	} else {
		audioDev = dev
		sdl.PauseAudioDevice(audioDev, false)
	}

	return &window{
		win:      win,
		renderer: renderer,
		texture:  texture,
		audioDev: audioDev,
		pixels:   make([]byte, ppu.ScreenWidth*ppu.ScreenHeight*3),
	}, nil
}

func (w *window) present(fb *[ppu.ScreenWidth * ppu.ScreenHeight]uint32) error {
	for i, px := range fb {
		w.pixels[i*3+0] = byte(px >> 16)
		w.pixels[i*3+1] = byte(px >> 8)
		w.pixels[i*3+2] = byte(px)
	}
	if err := w.texture.Update(nil, unsafe.Pointer(&w.pixels[0]), ppu.ScreenWidth*3); err != nil {
		return fmt.Errorf("texture update: %w", err)
	}
	w.renderer.Clear()
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return fmt.Errorf("texture copy: %w", err)
	}
	w.renderer.Present()
	return nil
}

// queueAudio interleaves and queues up to len(samples) stereo frames,
// skipping the push entirely if more than about four 1024-sample device
// buffers' worth is already queued so playback never drifts far behind
// emulation.
func (w *window) queueAudio(samples []apu.Sample) {
	if w.audioDev == 0 || len(samples) == 0 {
		return
	}
	const maxQueuedBytes = 4 * 2 * 4 * 1024 // ~4 frames of 1024 stereo float32 samples
	if sdl.GetQueuedAudioSize(w.audioDev) > maxQueuedBytes {
		return
	}
	if cap(w.audio) < len(samples)*8 {
		w.audio = make([]byte, len(samples)*8)
	}
	buf := w.audio[:len(samples)*8]
	for i, s := range samples {
		putFloat32(buf[i*8:], s.Left)
		putFloat32(buf[i*8+4:], s.Right)
	}
	// Dropped audio is preferable to blocking emulation on playback.
	sdl.QueueAudio(w.audioDev, buf)
}

func putFloat32(dst []byte, v float32) {
	bits := *(*[4]byte)(unsafe.Pointer(&v))
	copy(dst, bits[:])
}

func (w *window) close() {
	if w.audioDev != 0 {
		sdl.CloseAudioDevice(w.audioDev)
	}
	if w.texture != nil {
		w.texture.Destroy()
	}
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.win != nil {
		w.win.Destroy()
	}
	sdl.Quit()
}

// runWindowed opens an SDL window and runs the emulator in real time until
// the window is closed or Escape is pressed.
func (s *session) runWindowed() error {
	title := fmt.Sprintf("gbcore - %s", s.core.Header().Title)
	win, err := newWindow(title, s.opts.scale)
	if err != nil {
		return err
	}
	defer win.close()

	var audioBuf [2048]apu.Sample
	running := true
	for running {
		frameStart := time.Now()

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE && e.Type == sdl.KEYDOWN {
					running = false
				}
			}
		}
		s.pollInput()

		res := s.core.StepFor(time.Second / 60)
		if n := s.core.DrainAudio(audioBuf[:]); n > 0 {
			win.queueAudio(audioBuf[:n])
		}
		if res.FrameReady {
			if err := win.present(s.core.Frame()); err != nil {
				return err
			}
		}

		if elapsed := time.Since(frameStart); elapsed < time.Second/60 {
			sdl.Delay(uint32((time.Second/60 - elapsed).Milliseconds()))
		}
	}
	return nil
}

// pollInput reads the current keyboard state and forwards every mapped
// key's held/released transition to the core's joypad.
func (s *session) pollInput() {
	keys := sdl.GetKeyboardState()
	for scancode, button := range keyMap {
		s.core.SetButton(button, keys[scancode] != 0)
	}
}
