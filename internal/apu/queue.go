package apu

import "sync/atomic"

// Sample is one stereo output frame.
type Sample struct {
	Left, Right float32
}

// sampleQueueSize is the capacity of the SPSC sample queue; large enough
// to hold several frames of audio at typical host sample rates so the
// consumer has slack between drains.
const sampleQueueSize = 8192

// sampleQueue is a bounded single-producer/single-consumer ring buffer.
// The emulation thread (producer) pushes generated samples; a host audio
// callback (consumer) drains them at the device's own rate. Overflow drops
// the newest sample rather than blocking emulation.
type sampleQueue struct {
	buf        [sampleQueueSize]Sample
	writeIndex uint64
	readIndex  uint64
}

func (q *sampleQueue) push(s Sample) {
	w := atomic.LoadUint64(&q.writeIndex)
	r := atomic.LoadUint64(&q.readIndex)
	if w-r >= sampleQueueSize {
		return // overflow: drop newest sample
	}
	q.buf[w%sampleQueueSize] = s
	atomic.StoreUint64(&q.writeIndex, w+1)
}

// Drain pops up to len(out) samples into out, returning the count actually
// written. If the queue underflows, the remainder of out is filled by
// repeating the last popped sample (or silence if none was available).
func (q *sampleQueue) Drain(out []Sample) int {
	r := atomic.LoadUint64(&q.readIndex)
	w := atomic.LoadUint64(&q.writeIndex)
	n := 0
	for n < len(out) && r < w {
		out[n] = q.buf[r%sampleQueueSize]
		r++
		n++
	}
	atomic.StoreUint64(&q.readIndex, r)

	if n < len(out) {
		var last Sample
		if n > 0 {
			last = out[n-1]
		}
		for i := n; i < len(out); i++ {
			out[i] = last
		}
	}
	return n
}
