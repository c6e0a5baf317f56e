// Package apu emulates the Game Boy's audio processing unit: four sound
// channels, the 512 Hz frame sequencer, NR50/51/52 mixing, and a
// downsampled stereo sample stream delivered through a lock-free queue.
package apu

import (
	"bytes"
	"encoding/gob"
)

const (
	nativeRate   = 262144 // native internal sample rate, 4194304 Hz / 16
	samplePeriod = 4194304 / nativeRate
	outputRate   = 48000
)

// APU owns the four sound channels, mixing registers, and the downsampled
// output queue. Tick is called once per T-cycle by the bus.
type APU struct {
	enabled bool

	chan1 channel1
	chan2 channel2
	chan3 channel3
	chan4 channel4

	frameSeqCounter int
	frameSeqStep    uint8

	sampleCounter int

	vinLeft, vinRight       bool
	volumeLeft, volumeRight uint8
	leftEnable, rightEnable [4]bool

	hpCapL, hpCapR float32

	queue sampleQueue

	// resampler state: linear interpolation from the native rate down to
	// outputRate.
	prevL, prevR float32
	curL, curR   float32
	phase        float64
}

// New returns an APU with all channels and registers powered off, matching
// post-boot-ROM hardware state.
func New() *APU {
	return &APU{}
}

// Tick advances every channel and the frame sequencer by one T-cycle, and
// periodically pushes a downsampled stereo frame to the output queue.
func (a *APU) Tick() {
	if !a.enabled {
		return
	}

	a.frameSeqCounter--
	if a.frameSeqCounter <= 0 {
		a.frameSeqCounter = 8192 // 4194304 / 512
		switch a.frameSeqStep {
		case 0, 4:
			a.clockLength()
		case 2, 6:
			a.clockLength()
			a.chan1.sweepClock()
		case 7:
			a.chan1.volumeStep()
			a.chan2.volumeStep()
			a.chan4.volumeStep()
		}
		a.frameSeqStep = (a.frameSeqStep + 1) & 7
	}

	a.chan1.step()
	a.chan2.step()
	a.chan3.step()
	a.chan4.step()

	a.sampleCounter--
	if a.sampleCounter <= 0 {
		a.sampleCounter = samplePeriod
		a.generateNativeSample()
	}
}

func (a *APU) clockLength() {
	a.chan1.lengthStep()
	a.chan2.lengthStep()
	a.chan3.lengthStep()
	a.chan4.lengthStep()
}

// mix sums the enabled channels' analog amplitudes per the NR51 panning
// matrix, scales by the NR50 master volume, and applies a one-pole
// high-pass filter to remove the DC bias inherent in simple analog summing.
func (a *APU) mix() (left, right float32) {
	amps := [4]float32{a.chan1.amplitude(), a.chan2.amplitude(), a.chan3.amplitude(), a.chan4.amplitude()}
	for i, v := range amps {
		if a.leftEnable[i] {
			left += v
		}
		if a.rightEnable[i] {
			right += v
		}
	}
	left = left / 4 * (float32(a.volumeLeft) + 1) / 8
	right = right / 4 * (float32(a.volumeRight) + 1) / 8

	const charge = 0.999958 // ~high-pass cutoff well below audible range at nativeRate
	filteredL := left - a.hpCapL
	a.hpCapL = left - filteredL*charge
	filteredR := right - a.hpCapR
	a.hpCapR = right - filteredR*charge

	return filteredL, filteredR
}

// generateNativeSample produces one sample at nativeRate and feeds it
// through a linear-interpolation resampler down to outputRate, pushing
// finished output frames to the queue.
func (a *APU) generateNativeSample() {
	l, r := a.mix()
	a.prevL, a.prevR = a.curL, a.curR
	a.curL, a.curR = l, r

	step := float64(outputRate) / float64(nativeRate)
	a.phase += step
	for a.phase >= 1 {
		a.phase--
		t := float32(1 - a.phase)
		out := Sample{
			Left:  a.prevL + (a.curL-a.prevL)*t,
			Right: a.prevR + (a.curR-a.prevR)*t,
		}
		a.queue.push(out)
	}
}

// Drain pulls up to len(out) downsampled stereo frames into out, called by
// the host audio callback. Returns the number of frames actually written.
func (a *APU) Drain(out []Sample) int { return a.queue.Drain(out) }

// ReadRegister handles a CPU-visible read in 0xFF10-0xFF3F.
func (a *APU) ReadRegister(addr uint16) uint8 {
	if addr >= WaveRAMStart && addr <= WaveRAMEnd {
		return a.chan3.readWaveRAM(addr)
	}
	switch addr {
	case NR10:
		return a.chan1.readNR10()
	case NR11:
		return 0x3F | a.chan1.duty<<6
	case NR12:
		return a.chan1.readNR12()
	case NR14:
		return a.chan1.readNR14()
	case NR21:
		return 0x3F | a.chan2.duty<<6
	case NR22:
		return a.chan2.readNR22()
	case NR24:
		return a.chan2.readNR24()
	case NR30:
		return a.chan3.readNR30()
	case NR32:
		return a.chan3.readNR32()
	case NR34:
		return a.chan3.readNR34()
	case NR42:
		return a.chan4.readNR42()
	case NR43:
		return a.chan4.readNR43()
	case NR44:
		return a.chan4.readNR44()
	case NR50:
		v := a.volumeRight | a.volumeLeft<<4
		if a.vinRight {
			v |= 0x08
		}
		if a.vinLeft {
			v |= 0x80
		}
		return v
	case NR51:
		var v uint8
		for i := 0; i < 4; i++ {
			if a.rightEnable[i] {
				v |= 1 << i
			}
			if a.leftEnable[i] {
				v |= 1 << (i + 4)
			}
		}
		return v
	case NR52:
		v := uint8(0x70)
		if a.enabled {
			v |= 0x80
		}
		if a.chan1.enabled {
			v |= 0x01
		}
		if a.chan2.enabled {
			v |= 0x02
		}
		if a.chan3.enabled {
			v |= 0x04
		}
		if a.chan4.enabled {
			v |= 0x08
		}
		return v
	}
	return 0xFF
}

// WriteRegister handles a CPU-visible write in 0xFF10-0xFF3F. Writes to
// every register but NR52 and the length-counter load registers are
// ignored while the APU is powered off, matching real hardware; wave RAM
// is always writable.
func (a *APU) WriteRegister(addr uint16, value uint8) {
	if addr >= WaveRAMStart && addr <= WaveRAMEnd {
		a.chan3.writeWaveRAM(addr, value)
		return
	}
	if addr == NR52 {
		a.writeNR52(value)
		return
	}
	if !a.enabled {
		// DMG allows writes to the length-load registers even while the
		// APU is powered off; CGB ignores them too, but this core targets
		// the documented DMG behaviour for test-ROM compatibility.
		switch addr {
		case NR11:
			a.chan1.writeNR11(value)
		case NR21:
			a.chan2.writeNR21(value)
		case NR31:
			a.chan3.writeNR31(value)
		case NR41:
			a.chan4.writeNR41(value)
		}
		return
	}

	switch addr {
	case NR10:
		a.chan1.writeNR10(value)
	case NR11:
		a.chan1.writeNR11(value)
	case NR12:
		a.chan1.writeNR12(value)
	case NR13:
		a.chan1.writeNR13(value)
	case NR14:
		a.chan1.writeNR14(value, a.frameSeqStep)
	case NR21:
		a.chan2.writeNR21(value)
	case NR22:
		a.chan2.writeNR22(value)
	case NR23:
		a.chan2.writeNR23(value)
	case NR24:
		a.chan2.writeNR24(value, a.frameSeqStep)
	case NR30:
		a.chan3.writeNR30(value)
	case NR31:
		a.chan3.writeNR31(value)
	case NR32:
		a.chan3.writeNR32(value)
	case NR33:
		a.chan3.writeNR33(value)
	case NR34:
		a.chan3.writeNR34(value, a.frameSeqStep)
	case NR41:
		a.chan4.writeNR41(value)
	case NR42:
		a.chan4.writeNR42(value)
	case NR43:
		a.chan4.writeNR43(value)
	case NR44:
		a.chan4.writeNR44(value, a.frameSeqStep)
	case NR50:
		a.volumeRight = value & 0x7
		a.volumeLeft = value >> 4 & 0x7
		a.vinRight = value&0x08 != 0
		a.vinLeft = value&0x80 != 0
	case NR51:
		for i := 0; i < 4; i++ {
			a.rightEnable[i] = value&(1<<i) != 0
			a.leftEnable[i] = value&(1<<(i+4)) != 0
		}
	}
}

// writeNR52 handles powering the APU on/off. Powering off clears every
// audio register (wave RAM is unaffected); writes to other registers are
// ignored while the APU is off except the length-load registers above.
func (a *APU) writeNR52(value uint8) {
	on := value&0x80 != 0
	if a.enabled && !on {
		a.chan1 = channel1{}
		a.chan2 = channel2{}
		ram := a.chan3.waveRAM
		a.chan3 = channel3{waveRAM: ram}
		a.chan4 = channel4{}
		a.volumeLeft, a.volumeRight = 0, 0
		a.vinLeft, a.vinRight = false, false
		a.leftEnable, a.rightEnable = [4]bool{}, [4]bool{}
		a.enabled = false
	} else if !a.enabled && on {
		a.enabled = true
		a.frameSeqStep = 0
	}
}

// State is the serializable snapshot of an APU, used by save states.
type State struct {
	Enabled bool

	Chan1 channel1
	Chan2 channel2
	Chan3 channel3
	Chan4 channel4

	FrameSeqCounter int
	FrameSeqStep    uint8

	VinLeft, VinRight       bool
	VolumeLeft, VolumeRight uint8
	LeftEnable, RightEnable [4]bool
}

// Save returns a snapshot of the APU's state. The output sample queue and
// resampler phase are intentionally excluded: they are presentation state,
// not emulated machine state.
func (a *APU) Save() State {
	return State{
		Enabled:         a.enabled,
		Chan1:           a.chan1,
		Chan2:           a.chan2,
		Chan3:           a.chan3,
		Chan4:           a.chan4,
		FrameSeqCounter: a.frameSeqCounter,
		FrameSeqStep:    a.frameSeqStep,
		VinLeft:         a.vinLeft,
		VinRight:        a.vinRight,
		VolumeLeft:      a.volumeLeft,
		VolumeRight:     a.volumeRight,
		LeftEnable:      a.leftEnable,
		RightEnable:     a.rightEnable,
	}
}

// Restore replaces the APU's state with a previously saved snapshot.
func (a *APU) Restore(s State) {
	a.enabled = s.Enabled
	a.chan1 = s.Chan1
	a.chan2 = s.Chan2
	a.chan3 = s.Chan3
	a.chan4 = s.Chan4
	a.frameSeqCounter = s.FrameSeqCounter
	a.frameSeqStep = s.FrameSeqStep
	a.vinLeft, a.vinRight = s.VinLeft, s.VinRight
	a.volumeLeft, a.volumeRight = s.VolumeLeft, s.VolumeRight
	a.leftEnable, a.rightEnable = s.LeftEnable, s.RightEnable
}

// wireChannel1/2/3/4 mirror the unexported channel structs with exported
// fields so gob can see into them; channel1-4 themselves stay unexported
// since nothing outside the package needs their fields individually.
type wireLengthCounter struct {
	Value   int
	Enabled bool
}

type wireEnvelope struct {
	InitialVolume uint8
	Increasing    bool
	Period        uint8
	Volume        uint8
	Counter       uint8
}

type wireChannel1 struct {
	Enabled, DACEnabled bool
	Duty, DutyStep      uint8
	Length              wireLengthCounter
	Envelope            wireEnvelope
	Frequency           uint16
	Timer               int
	SweepPeriod         uint8
	SweepNegate         bool
	SweepShift          uint8
	SweepTimer          uint8
	SweepEnabled        bool
	SweepShadow         uint16
	NegateUsedOnce      bool
}

type wireChannel2 struct {
	Enabled, DACEnabled bool
	Duty, DutyStep      uint8
	Length              wireLengthCounter
	Envelope            wireEnvelope
	Frequency           uint16
	Timer               int
}

type wireChannel3 struct {
	Enabled, DACEnabled bool
	Length              wireLengthCounter
	VolumeShift         uint8
	Frequency           uint16
	Timer               int
	SampleIdx           uint8
	WaveRAM             [16]uint8
	LastSample          uint8
}

type wireChannel4 struct {
	Enabled, DACEnabled bool
	Length              wireLengthCounter
	Envelope            wireEnvelope
	ClockShift          uint8
	WidthMode7          bool
	DivisorCode         uint8
	Timer               int
	LFSR                uint16
}

// wireState is State with every channel mirrored into its exported wire
// form; this is the shape actually handed to gob.
type wireState struct {
	Enabled bool

	Chan1 wireChannel1
	Chan2 wireChannel2
	Chan3 wireChannel3
	Chan4 wireChannel4

	FrameSeqCounter int
	FrameSeqStep    uint8

	VinLeft, VinRight       bool
	VolumeLeft, VolumeRight uint8
	LeftEnable, RightEnable [4]bool
}

func lcToWire(l lengthCounter) wireLengthCounter {
	return wireLengthCounter{l.value, l.enabled}
}

func lcFromWire(w wireLengthCounter) lengthCounter {
	return lengthCounter{w.Value, w.Enabled}
}

func envToWire(e envelope) wireEnvelope {
	return wireEnvelope{e.initialVolume, e.increasing, e.period, e.volume, e.counter}
}

func envFromWire(w wireEnvelope) envelope {
	return envelope{w.InitialVolume, w.Increasing, w.Period, w.Volume, w.Counter}
}

// GobEncode implements gob.GobEncoder, mirroring every channel's
// unexported fields into an exported wire representation first: gob
// silently drops unexported struct fields, which would otherwise lose all
// channel state on every save.
func (s State) GobEncode() ([]byte, error) {
	w := wireState{
		Enabled: s.Enabled,
		Chan1: wireChannel1{
			Enabled: s.Chan1.enabled, DACEnabled: s.Chan1.dacEnabled,
			Duty: s.Chan1.duty, DutyStep: s.Chan1.dutyStep,
			Length: lcToWire(s.Chan1.length), Envelope: envToWire(s.Chan1.envelope),
			Frequency: s.Chan1.frequency, Timer: s.Chan1.timer,
			SweepPeriod: s.Chan1.sweepPeriod, SweepNegate: s.Chan1.sweepNegate,
			SweepShift: s.Chan1.sweepShift, SweepTimer: s.Chan1.sweepTimer,
			SweepEnabled: s.Chan1.sweepEnabled, SweepShadow: s.Chan1.sweepShadow,
			NegateUsedOnce: s.Chan1.negateUsedOnce,
		},
		Chan2: wireChannel2{
			Enabled: s.Chan2.enabled, DACEnabled: s.Chan2.dacEnabled,
			Duty: s.Chan2.duty, DutyStep: s.Chan2.dutyStep,
			Length: lcToWire(s.Chan2.length), Envelope: envToWire(s.Chan2.envelope),
			Frequency: s.Chan2.frequency, Timer: s.Chan2.timer,
		},
		Chan3: wireChannel3{
			Enabled: s.Chan3.enabled, DACEnabled: s.Chan3.dacEnabled,
			Length: lcToWire(s.Chan3.length), VolumeShift: s.Chan3.volumeShift,
			Frequency: s.Chan3.frequency, Timer: s.Chan3.timer,
			SampleIdx: s.Chan3.sampleIdx, WaveRAM: s.Chan3.waveRAM, LastSample: s.Chan3.lastSample,
		},
		Chan4: wireChannel4{
			Enabled: s.Chan4.enabled, DACEnabled: s.Chan4.dacEnabled,
			Length: lcToWire(s.Chan4.length), Envelope: envToWire(s.Chan4.envelope),
			ClockShift: s.Chan4.clockShift, WidthMode7: s.Chan4.widthMode7,
			DivisorCode: s.Chan4.divisorCode, Timer: s.Chan4.timer, LFSR: s.Chan4.lfsr,
		},
		FrameSeqCounter: s.FrameSeqCounter, FrameSeqStep: s.FrameSeqStep,
		VinLeft: s.VinLeft, VinRight: s.VinRight,
		VolumeLeft: s.VolumeLeft, VolumeRight: s.VolumeRight,
		LeftEnable: s.LeftEnable, RightEnable: s.RightEnable,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (s *State) GobDecode(data []byte) error {
	var w wireState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	s.Enabled = w.Enabled
	s.Chan1 = channel1{
		enabled: w.Chan1.Enabled, dacEnabled: w.Chan1.DACEnabled,
		duty: w.Chan1.Duty, dutyStep: w.Chan1.DutyStep,
		length: lcFromWire(w.Chan1.Length), envelope: envFromWire(w.Chan1.Envelope),
		frequency: w.Chan1.Frequency, timer: w.Chan1.Timer,
		sweepPeriod: w.Chan1.SweepPeriod, sweepNegate: w.Chan1.SweepNegate,
		sweepShift: w.Chan1.SweepShift, sweepTimer: w.Chan1.SweepTimer,
		sweepEnabled: w.Chan1.SweepEnabled, sweepShadow: w.Chan1.SweepShadow,
		negateUsedOnce: w.Chan1.NegateUsedOnce,
	}
	s.Chan2 = channel2{
		enabled: w.Chan2.Enabled, dacEnabled: w.Chan2.DACEnabled,
		duty: w.Chan2.Duty, dutyStep: w.Chan2.DutyStep,
		length: lcFromWire(w.Chan2.Length), envelope: envFromWire(w.Chan2.Envelope),
		frequency: w.Chan2.Frequency, timer: w.Chan2.Timer,
	}
	s.Chan3 = channel3{
		enabled: w.Chan3.Enabled, dacEnabled: w.Chan3.DACEnabled,
		length: lcFromWire(w.Chan3.Length), volumeShift: w.Chan3.VolumeShift,
		frequency: w.Chan3.Frequency, timer: w.Chan3.Timer,
		sampleIdx: w.Chan3.SampleIdx, waveRAM: w.Chan3.WaveRAM, lastSample: w.Chan3.LastSample,
	}
	s.Chan4 = channel4{
		enabled: w.Chan4.Enabled, dacEnabled: w.Chan4.DACEnabled,
		length: lcFromWire(w.Chan4.Length), envelope: envFromWire(w.Chan4.Envelope),
		clockShift: w.Chan4.ClockShift, widthMode7: w.Chan4.WidthMode7,
		divisorCode: w.Chan4.DivisorCode, timer: w.Chan4.Timer, lfsr: w.Chan4.LFSR,
	}
	s.FrameSeqCounter, s.FrameSeqStep = w.FrameSeqCounter, w.FrameSeqStep
	s.VinLeft, s.VinRight = w.VinLeft, w.VinRight
	s.VolumeLeft, s.VolumeRight = w.VolumeLeft, w.VolumeRight
	s.LeftEnable, s.RightEnable = w.LeftEnable, w.RightEnable
	return nil
}
