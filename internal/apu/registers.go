package apu

// NRxx register addresses, offset from 0xFF10.
const (
	NR10 = 0xFF10
	NR11 = 0xFF11
	NR12 = 0xFF12
	NR13 = 0xFF13
	NR14 = 0xFF14

	NR21 = 0xFF16
	NR22 = 0xFF17
	NR23 = 0xFF18
	NR24 = 0xFF19

	NR30 = 0xFF1A
	NR31 = 0xFF1B
	NR32 = 0xFF1C
	NR33 = 0xFF1D
	NR34 = 0xFF1E

	NR41 = 0xFF20
	NR42 = 0xFF21
	NR43 = 0xFF22
	NR44 = 0xFF23

	NR50 = 0xFF24
	NR51 = 0xFF25
	NR52 = 0xFF26

	WaveRAMStart = 0xFF30
	WaveRAMEnd   = 0xFF3F
)

// dutyTable holds the 8-step waveform for each of the four pulse duty
// cycles (12.5%, 25%, 50%, 75%).
var dutyTable = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// lengthCounter is the shared 64-step (256 for the wave channel) length
// unit present on all four channels.
type lengthCounter struct {
	value   int
	enabled bool
}

func (l *lengthCounter) load(max, v int) {
	if v == 0 {
		v = max
	}
	l.value = v
}

// clock decrements the counter on frame-sequencer steps 0/2/4/6 and reports
// whether the owning channel should now disable itself.
func (l *lengthCounter) clock() (expired bool) {
	if !l.enabled || l.value == 0 {
		return false
	}
	l.value--
	return l.value == 0
}

// envelope is the shared volume-envelope unit on channels 1, 2 and 4.
type envelope struct {
	initialVolume uint8
	increasing    bool
	period        uint8

	volume  uint8
	counter uint8
}

func (e *envelope) trigger() {
	e.volume = e.initialVolume
	e.counter = e.period
}

func (e *envelope) clock() {
	if e.period == 0 {
		return
	}
	if e.counter > 0 {
		e.counter--
	}
	if e.counter == 0 {
		e.counter = e.period
		if e.increasing && e.volume < 15 {
			e.volume++
		} else if !e.increasing && e.volume > 0 {
			e.volume--
		}
	}
}
