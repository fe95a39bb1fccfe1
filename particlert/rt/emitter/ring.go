package emitter

import (
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// SlotRing is a fixed-capacity circular buffer of particle slots. The live range is
// [firstAlive, firstDead) modulo capacity; living tells a full ring apart from an
// empty one when the two indices meet.
type SlotRing struct {
	slots      []core.ParticleSlot
	firstAlive int
	firstDead  int
	living     int
}

func NewSlotRing(capacity int) *SlotRing {
	if capacity <= 0 {
		panic("slot ring capacity must be positive")
	}
	return &SlotRing{slots: make([]core.ParticleSlot, capacity)}
}

func (r *SlotRing) Cap() int        { return len(r.slots) }
func (r *SlotRing) Len() int        { return r.living }
func (r *SlotRing) Full() bool      { return r.living == len(r.slots) }
func (r *SlotRing) FirstAlive() int { return r.firstAlive }
func (r *SlotRing) FirstDead() int  { return r.firstDead }

// Spawn writes a particle into the first dead slot. It returns false, leaving the ring
// untouched, when every slot is alive.
func (r *SlotRing) Spawn(currentTime float32, startPosition, startVelocity mgl32.Vec3) bool {
	if r.living == len(r.slots) {
		return false
	}
	r.slots[r.firstDead] = core.ParticleSlot{
		EmitTime:      currentTime,
		StartPosition: startPosition,
		StartVelocity: startVelocity,
	}
	r.firstDead = (r.firstDead + 1) % len(r.slots)
	r.living++
	return true
}

// RetireOldest kills the particle at firstAlive. Age policy belongs to the caller.
func (r *SlotRing) RetireOldest() {
	if r.living == 0 {
		return
	}
	r.firstAlive = (r.firstAlive + 1) % len(r.slots)
	r.living--
}

// At returns the k-th oldest live slot.
func (r *SlotRing) At(k int) core.ParticleSlot {
	if k < 0 || k >= r.living {
		panic("slot ring index out of live range")
	}
	return r.slots[(r.firstAlive+k)%len(r.slots)]
}

// Oldest returns the particle at firstAlive and false if the ring is empty.
func (r *SlotRing) Oldest() (core.ParticleSlot, bool) {
	if r.living == 0 {
		return core.ParticleSlot{}, false
	}
	return r.slots[r.firstAlive], true
}

// Each walks the live range oldest first. Returning false stops the walk.
func (r *SlotRing) Each(fn func(k int, slot *core.ParticleSlot) bool) {
	n := r.living
	start := r.firstAlive
	for k := 0; k < n; k++ {
		if !fn(k, &r.slots[(start+k)%len(r.slots)]) {
			return
		}
	}
}

func (r *SlotRing) Reset() {
	r.firstAlive = 0
	r.firstDead = 0
	r.living = 0
}

// wraps reports whether the live range crosses the end of the slot array.
func (r *SlotRing) wraps() bool {
	return r.living > 0 && r.firstDead <= r.firstAlive
}
