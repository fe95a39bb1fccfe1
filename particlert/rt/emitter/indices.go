package emitter

// IndicesPerParticle is the index count of one camera-facing quad.
const IndicesPerParticle = 6

// QuadIndices builds the static index pattern for maxParticles quads. Vertex 4i+c is
// corner c of particle i; the vertex shader recovers both from the vertex index.
func QuadIndices(maxParticles int) []uint32 {
	indices := make([]uint32, 0, maxParticles*IndicesPerParticle)
	for i := 0; i < maxParticles; i++ {
		v := uint32(i * 4)
		indices = append(indices, v, v+1, v+2, v, v+2, v+3)
	}
	return indices
}
