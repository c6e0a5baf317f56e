package apu

// channel3 plays an arbitrary 32-sample, 4-bit waveform from wave RAM.
type channel3 struct {
	enabled, dacEnabled bool

	length lengthCounter

	volumeShift uint8 // 0=mute, 1=100%, 2=50%, 3=25%

	frequency  uint16
	timer      int
	sampleIdx  uint8
	waveRAM    [16]uint8 // 32 4-bit samples packed two per byte
	lastSample uint8
}

func (c *channel3) writeNR30(v uint8) {
	c.dacEnabled = v&0x80 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

func (c *channel3) readNR30() uint8 {
	if c.dacEnabled {
		return 0xFF
	}
	return 0x7F
}

func (c *channel3) writeNR31(v uint8) { c.length.load(256, int(v)) }

func (c *channel3) writeNR32(v uint8) { c.volumeShift = v >> 5 & 0x3 }

func (c *channel3) readNR32() uint8 { return c.volumeShift<<5 | 0x9F }

func (c *channel3) writeNR33(v uint8) { c.frequency = c.frequency&0x700 | uint16(v) }

func (c *channel3) writeNR34(v uint8, frameSeqStep uint8) {
	c.frequency = c.frequency&0xFF | uint16(v&0x07)<<8
	c.length.enabled = v&0x40 != 0
	if v&0x80 != 0 {
		c.trigger(frameSeqStep)
	}
}

func (c *channel3) readNR34() uint8 {
	v := uint8(0x3F)
	if c.length.enabled {
		v |= 0x40
	}
	return v
}

func (c *channel3) trigger(frameSeqStep uint8) {
	c.enabled = c.dacEnabled
	if c.length.value == 0 {
		c.length.load(256, 0)
		if frameSeqStep&1 == 0 {
			c.length.value--
		}
	}
	c.timer = (2048 - int(c.frequency)) * 2
	c.sampleIdx = 0
}

func (c *channel3) lengthStep() {
	if c.length.clock() {
		c.enabled = false
	}
}

func (c *channel3) step() {
	c.timer--
	if c.timer <= 0 {
		c.timer = (2048 - int(c.frequency)) * 2
		c.sampleIdx = (c.sampleIdx + 1) & 31
		b := c.waveRAM[c.sampleIdx/2]
		if c.sampleIdx%2 == 0 {
			c.lastSample = b >> 4
		} else {
			c.lastSample = b & 0x0F
		}
	}
}

func (c *channel3) readWaveRAM(addr uint16) uint8 {
	return c.waveRAM[addr-WaveRAMStart]
}

func (c *channel3) writeWaveRAM(addr uint16, v uint8) {
	c.waveRAM[addr-WaveRAMStart] = v
}

func (c *channel3) amplitude() float32 {
	if !c.enabled || !c.dacEnabled || c.volumeShift == 0 {
		return 0
	}
	sample := c.lastSample >> (c.volumeShift - 1)
	return float32(sample)/7.5 - 1
}
