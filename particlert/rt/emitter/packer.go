package emitter

import (
	"github.com/gekko3d/particles/particlert/rt/core"
)

// Pack copies the live range of ring into dst oldest first, with no gaps, and returns
// the number of slots written. A wrapped range takes two copies: the tail of the slot
// array from firstAlive, then the head up to firstDead.
func Pack(ring *SlotRing, dst []core.ParticleSlot) int {
	n := ring.Len()
	if len(dst) < n {
		panic("pack destination smaller than the live particle count")
	}
	if n == 0 {
		return 0
	}

	if !ring.wraps() {
		copy(dst, ring.slots[ring.firstAlive:ring.firstDead])
		return n
	}

	tail := copy(dst, ring.slots[ring.firstAlive:])
	copy(dst[tail:], ring.slots[:ring.firstDead])
	return n
}
