package conformance

import (
	"time"

	"github.com/dmgcore/gbcore/internal/cartridge/mbc"
)

// RTCResult is the outcome of the MBC3 RTC sanity scenario: clear the halt
// bit, let a large amount of wall time pass, latch, and check that
// seconds/minutes/hours rolled over the way a real MBC3 chip would.
type RTCResult struct {
	Seconds, Minutes, Hours uint8
	Passed                  bool
}

// RunRTCSanity drives an mbc.RTC through an injected fake clock rather
// than a loaded ROM or real wall time: clear the halt bit, advance the
// fake clock by advanceSeconds, latch, and read back h/m/s. This exercises
// exactly the RTC chip's advancement logic without needing a cartridge or
// CPU at all.
func RunRTCSanity(advanceSeconds int64) RTCResult {
	start := time.Unix(0, 0)
	now := start
	rtc := mbc.NewRTC(func() time.Time { return now })

	// Clear the halt bit (and any latent day-carry/day-high bits) with a
	// register write, matching how a game unhalts the clock.
	rtc.WriteRegister(0x0C, 0x00)

	now = start.Add(time.Duration(advanceSeconds) * time.Second)
	rtc.Latch()

	seconds := rtc.ReadRegister(0x08)
	minutes := rtc.ReadRegister(0x09)
	hours := rtc.ReadRegister(0x0A)

	return RTCResult{
		Seconds: seconds,
		Minutes: minutes,
		Hours:   hours,
		Passed:  seconds == 0 && minutes == 0 && hours == uint8((advanceSeconds/3600)%24),
	}
}
