package emitter

import (
	"math"
	"math/rand"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// UpdateStats counts what one Advance did.
type UpdateStats struct {
	Spawned int
	Retired int
	Dropped int // spawns skipped because the ring was full
}

// Simulator ages, retires and emits particles on a fixed-rate clock.
type Simulator struct {
	ring   *SlotRing
	cfg    *Config
	source PositionSource
	rng    *rand.Rand

	secondsPerParticle float32
	timeSinceLastEmit  float32
}

func newSimulator(ring *SlotRing, cfg *Config, source PositionSource, rng *rand.Rand) *Simulator {
	return &Simulator{
		ring:               ring,
		cfg:                cfg,
		source:             source,
		rng:                rng,
		secondsPerParticle: cfg.SecondsPerParticle(),
	}
}

// Advance moves the simulation to currentTime.
//
// Every live particle is visited oldest first. A particle is retired once its age
// reaches the lifetime, as long as every older particle was retired before it, so
// RetireOldest always removes the slot that expired.
// Emission then spends the accumulated time budget in whole secondsPerParticle steps.
// A long frame spawns until the ring is full; the remaining steps count as dropped.
func (s *Simulator) Advance(dt, currentTime float32) UpdateStats {
	var stats UpdateStats

	if s.ring.Len() > 0 {
		lifetime := s.cfg.Lifetime
		s.ring.Each(func(k int, slot *core.ParticleSlot) bool {
			if k == stats.Retired && slot.Age(currentTime) >= lifetime {
				s.ring.RetireOldest()
				stats.Retired++
			}
			return true
		})
	}

	s.timeSinceLastEmit += dt
	steps, remainder := emissionSteps(s.timeSinceLastEmit, s.secondsPerParticle)
	s.timeSinceLastEmit = remainder

	spawn := min(steps, s.ring.Cap()-s.ring.Len())
	for i := 0; i < spawn; i++ {
		s.ring.Spawn(currentTime, s.spawnPosition(), s.cfg.StartVelocity)
	}
	stats.Spawned = spawn
	stats.Dropped = steps - spawn

	return stats
}

// maxEmissionSteps bounds the step count of a single frame so it fits an int.
const maxEmissionSteps = math.MaxInt32

// emissionSteps splits budget into whole interval steps and the unspent remainder.
func emissionSteps(budget, interval float32) (int, float32) {
	if budget < interval {
		return 0, budget
	}
	b, i := float64(budget), float64(interval)
	steps := math.Floor(b / i)
	if steps >= maxEmissionSteps {
		return maxEmissionSteps, 0
	}
	rem := b - steps*i
	if rem < 0 {
		rem = 0
	}
	return int(steps), float32(rem)
}

func (s *Simulator) spawnPosition() mgl32.Vec3 {
	pos := s.source.WorldPosition()
	if s.cfg.Spawn.Kind != SpawnBox {
		return pos
	}
	h := s.cfg.boxHalfExtent()
	return pos.Add(mgl32.Vec3{
		(s.rng.Float32()*2 - 1) * h,
		(s.rng.Float32()*2 - 1) * h,
		(s.rng.Float32()*2 - 1) * h,
	})
}

// TimeSinceLastEmit is the unspent part of the emission budget.
func (s *Simulator) TimeSinceLastEmit() float32 {
	return s.timeSinceLastEmit
}

func (s *Simulator) reset() {
	s.timeSinceLastEmit = 0
}
