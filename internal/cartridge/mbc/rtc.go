package mbc

import "time"

// Clock supplies the current wall-clock time to an RTC. Production code
// uses time.Now; tests inject a fake clock to exercise RTC advancement
// deterministically without sleeping.
type Clock func() time.Time

// RTC emulates the MBC3's real-time clock chip. Its live registers
// (seconds, minutes, hours, 9-bit day counter) advance by elapsed
// wall-clock time whenever they are not halted; reads only ever see a
// latched snapshot taken the last time Latch was called, matching the
// two-stage latch protocol games use (write 0 then 1 to 0x6000-0x7FFF).
type RTC struct {
	clock Clock

	seconds, minutes, hours uint8
	days                    uint16 // 9 bits; bit 8 stored here, exposed via register 0x0C bit 0
	dayCarry                bool
	halted                  bool

	lastSync time.Time

	latch [5]uint8 // seconds, minutes, hours, day-low, day-high/carry/halt
}

// NewRTC returns a fresh RTC synced to clock's current time.
func NewRTC(clock Clock) *RTC {
	if clock == nil {
		clock = time.Now
	}
	return &RTC{clock: clock, lastSync: clock()}
}

// advance folds wall-clock time elapsed since the last sync into the live
// registers, carrying seconds into minutes, minutes into hours, hours into
// days, and setting the sticky day-carry flag with wraparound if the
// 9-bit day counter overflows. It is a no-op while halted.
func (r *RTC) advance(now time.Time) {
	if r.halted {
		r.lastSync = now
		return
	}
	delta := int64(now.Sub(r.lastSync) / time.Second)
	if delta <= 0 {
		return
	}
	r.lastSync = r.lastSync.Add(time.Duration(delta) * time.Second)

	sec := int64(r.seconds) + delta
	r.seconds = uint8(sec % 60)
	min := int64(r.minutes) + sec/60
	r.minutes = uint8(min % 60)
	hour := int64(r.hours) + min/60
	r.hours = uint8(hour % 24)
	days := int64(r.days) + hour/24
	if days >= 512 {
		r.dayCarry = true
		days %= 512
	}
	r.days = uint16(days)
}

// Latch folds in elapsed wall-clock time and copies the live registers
// into the latched snapshot that ReadRegister serves.
func (r *RTC) Latch() {
	r.advance(r.clock())
	r.latch[0] = r.seconds
	r.latch[1] = r.minutes
	r.latch[2] = r.hours
	r.latch[3] = uint8(r.days)
	high := uint8(r.days >> 8 & 0x01)
	if r.halted {
		high |= 0x40
	}
	if r.dayCarry {
		high |= 0x80
	}
	r.latch[4] = high
}

// ReadRegister returns the latched value of RTC register reg (0x08-0x0C).
func (r *RTC) ReadRegister(reg uint8) uint8 {
	if reg < 0x08 || reg > 0x0C {
		return 0xFF
	}
	return r.latch[reg-0x08]
}

// WriteRegister writes live RTC register reg (0x08-0x0C). Per the spec's
// resolution of the halt-bit ambiguity, setting bit 6 of register 0x0C
// folds in elapsed wall-clock time and stops the clock; clearing it resumes
// counting from the write's wall-clock moment.
func (r *RTC) WriteRegister(reg uint8, value uint8) {
	r.advance(r.clock())
	switch reg {
	case 0x08:
		r.seconds = value & 0x3F
	case 0x09:
		r.minutes = value & 0x3F
	case 0x0A:
		r.hours = value & 0x1F
	case 0x0B:
		r.days = r.days&0x100 | uint16(value)
	case 0x0C:
		r.days = r.days&0xFF | uint16(value&0x01)<<8
		r.halted = value&0x40 != 0
		r.dayCarry = value&0x80 != 0
	}
}

// State is the serializable snapshot of an RTC, matching the spec's
// <rom>.rtc on-disk layout.
type State struct {
	Seconds, Minutes, Hours uint8
	Days                    uint16
	Halted, DayCarry        bool
	LastSyncUnixNano        int64
}

// Save returns a snapshot of the RTC's state.
func (r *RTC) Save() State {
	return State{r.seconds, r.minutes, r.hours, r.days, r.halted, r.dayCarry, r.lastSync.UnixNano()}
}

// Restore replaces the RTC's state with a previously saved snapshot.
func (r *RTC) Restore(s State) {
	r.seconds, r.minutes, r.hours = s.Seconds, s.Minutes, s.Hours
	r.days, r.halted, r.dayCarry = s.Days, s.Halted, s.DayCarry
	r.lastSync = time.Unix(0, s.LastSyncUnixNano)
}
