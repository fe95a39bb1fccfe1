package emitter

import (
	"math/rand"
	"testing"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack_Empty(t *testing.T) {
	r := NewSlotRing(4)
	dst := make([]core.ParticleSlot, 4)
	assert.Equal(t, 0, Pack(r, dst))
}

func TestPack_Contiguous(t *testing.T) {
	r := NewSlotRing(4)
	r.Spawn(0, mgl32.Vec3{}, mgl32.Vec3{})
	r.Spawn(1, mgl32.Vec3{}, mgl32.Vec3{})
	r.Spawn(2, mgl32.Vec3{}, mgl32.Vec3{})
	r.RetireOldest()

	dst := make([]core.ParticleSlot, 4)
	n := Pack(r, dst)
	require.Equal(t, 2, n)
	assert.Equal(t, float32(1), dst[0].EmitTime)
	assert.Equal(t, float32(2), dst[1].EmitTime)
}

func TestPack_Wraparound(t *testing.T) {
	r := NewSlotRing(4)
	for i := 0; i < 4; i++ {
		r.Spawn(float32(i), mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{})
	}
	r.RetireOldest()
	r.RetireOldest()
	r.RetireOldest()
	r.Spawn(4, mgl32.Vec3{4, 0, 0}, mgl32.Vec3{})

	require.Equal(t, 3, r.FirstAlive())
	require.Equal(t, 1, r.FirstDead())
	require.Equal(t, 2, r.Len())

	dst := make([]core.ParticleSlot, 4)
	n := Pack(r, dst)
	require.Equal(t, 2, n)
	assert.Equal(t, r.slots[3], dst[0])
	assert.Equal(t, r.slots[0], dst[1])
	assert.Equal(t, float32(3), dst[0].EmitTime)
	assert.Equal(t, float32(4), dst[1].EmitTime)
}

func TestPack_FullRingAtEveryRotation(t *testing.T) {
	for shift := 0; shift < 3; shift++ {
		r := NewSlotRing(3)
		now := float32(0)
		for i := 0; i < shift; i++ {
			r.Spawn(now, mgl32.Vec3{}, mgl32.Vec3{})
			r.RetireOldest()
			now++
		}
		for i := 0; i < 3; i++ {
			r.Spawn(now, mgl32.Vec3{}, mgl32.Vec3{})
			now++
		}
		require.True(t, r.Full())

		dst := make([]core.ParticleSlot, 3)
		require.Equal(t, 3, Pack(r, dst))
		for k := 0; k < 3; k++ {
			assert.Equal(t, float32(shift+k), dst[k].EmitTime, "shift %d slot %d", shift, k)
		}
	}
}

func TestPack_ShortDestinationPanics(t *testing.T) {
	r := NewSlotRing(2)
	r.Spawn(0, mgl32.Vec3{}, mgl32.Vec3{})
	r.Spawn(0, mgl32.Vec3{}, mgl32.Vec3{})
	assert.Panics(t, func() { Pack(r, make([]core.ParticleSlot, 1)) })
}

// Packing, encoding to the GPU layout and decoding again must reproduce the same
// oldest-first order the ring reports.
func TestPack_RoundTripPreservesChronology(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	r := NewSlotRing(7)
	now := float32(0)
	dst := make([]core.ParticleSlot, r.Cap())

	for step := 0; step < 500; step++ {
		now += 0.25
		if rng.Intn(2) == 0 {
			r.Spawn(now, mgl32.Vec3{now, 0, 0}, mgl32.Vec3{})
		} else {
			r.RetireOldest()
		}

		n := Pack(r, dst)
		decoded, err := core.DecodeSlots(core.EncodeSlots(nil, dst[:n]))
		require.NoError(t, err)
		require.Len(t, decoded, r.Len())

		for k, p := range decoded {
			require.Equal(t, r.At(k).Age(now), p.Age(now))
			if k > 0 {
				require.GreaterOrEqual(t, decoded[k-1].Age(now), p.Age(now), "packed buffer must be oldest first")
			}
		}
	}
}
