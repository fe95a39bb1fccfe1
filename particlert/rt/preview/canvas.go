// Package preview rasterises particle draws on the CPU. It accepts the same uploads
// and frame params as the GPU pass, which makes it usable for headless runs and tests.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
)

type Canvas struct {
	Background color.RGBA

	img    *image.RGBA
	params *core.UniformBlock
	buffer []byte

	draws     int
	particles int
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		Background: color.RGBA{R: 26, G: 51, B: 77, A: 255},
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		params:     core.NewUniformBlock(),
	}
	c.Clear()
	return c
}

// Params is the uniform block emitters write into before drawing on this canvas.
func (c *Canvas) Params() *core.UniformBlock { return c.params }

func (c *Canvas) Image() *image.RGBA { return c.img }

// Stats returns the number of draw calls and particles rasterised since Clear.
func (c *Canvas) Stats() (draws, particles int) { return c.draws, c.particles }

func (c *Canvas) Aspect() float32 {
	b := c.img.Bounds()
	return float32(b.Dx()) / float32(b.Dy())
}

func (c *Canvas) Clear() {
	xdraw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.Background), image.Point{}, xdraw.Src)
	c.draws = 0
	c.particles = 0
}

// UploadParticles discards the previous buffer contents and stores the encoded slots.
func (c *Canvas) UploadParticles(slots []core.ParticleSlot) error {
	c.buffer = core.EncodeSlots(c.buffer, slots)
	return nil
}

// DrawIndexed rasterises indexCount/6 quads from the uploaded buffer, evaluating the
// same motion, size and colour ramps as the particle shader.
func (c *Canvas) DrawIndexed(indexCount uint32) error {
	slots, err := core.DecodeSlots(c.buffer)
	if err != nil {
		return err
	}
	quads := int(indexCount / 6)
	if quads > len(slots) {
		return fmt.Errorf("draw of %d quads exceeds %d uploaded particles", quads, len(slots))
	}

	p := c.params
	view := p.Matrix4x4(core.ParamView)
	proj := p.Matrix4x4(core.ParamProjection)
	now := p.Float(core.ParamCurrentTime)
	lifetime := p.Float(core.ParamLifetime)
	accel := p.Float3(core.ParamAcceleration)
	startSize, endSize := p.Float(core.ParamStartSize), p.Float(core.ParamEndSize)
	startColor, endColor := p.Float4(core.ParamStartColor), p.Float4(core.ParamEndColor)

	b := c.img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())

	for _, s := range slots[:quads] {
		t := float32(1)
		if lifetime > 0 {
			t = mgl32.Clamp(s.Age(now)/lifetime, 0, 1)
		}
		world := s.PositionAt(now, accel)
		clip := proj.Mul4x1(view.Mul4x1(world.Vec4(1)))
		if clip.W() <= 0 {
			continue
		}
		ndc := clip.Vec3().Mul(1 / clip.W())
		cx := (ndc.X()*0.5 + 0.5) * w
		cy := (1 - (ndc.Y()*0.5 + 0.5)) * h

		half := lerp(startSize, endSize, t) * 0.5
		rx := half * proj.At(0, 0) / clip.W() * 0.5 * w
		ry := half * proj.At(1, 1) / clip.W() * 0.5 * h

		col := mgl32.Vec4{
			lerp(startColor[0], endColor[0], t),
			lerp(startColor[1], endColor[1], t),
			lerp(startColor[2], endColor[2], t),
			lerp(startColor[3], endColor[3], t),
		}
		c.splat(cx, cy, rx, ry, col)
		c.particles++
	}
	c.draws++
	return nil
}

// splat blends a soft disc with the shader's smoothstep falloff.
func (c *Canvas) splat(cx, cy, rx, ry float32, col mgl32.Vec4) {
	if rx <= 0 || ry <= 0 {
		return
	}
	b := c.img.Bounds()
	x0 := max(b.Min.X, int(math.Floor(float64(cx-rx))))
	x1 := min(b.Max.X, int(math.Ceil(float64(cx+rx))))
	y0 := max(b.Min.Y, int(math.Floor(float64(cy-ry))))
	y1 := min(b.Max.Y, int(math.Ceil(float64(cy+ry))))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx := (float32(x) + 0.5 - cx) / rx
			dy := (float32(y) + 0.5 - cy) / ry
			d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
			a := col[3] * (1 - smoothstep(0.6, 1.0, d))
			if a <= 0 {
				continue
			}
			dst := c.img.RGBAAt(x, y)
			c.img.SetRGBA(x, y, color.RGBA{
				R: blend(dst.R, col[0], a),
				G: blend(dst.G, col[1], a),
				B: blend(dst.B, col[2], a),
				A: dst.A,
			})
		}
	}
}

// WritePNG encodes the canvas, upscaled by scale with bilinear filtering.
func (c *Canvas) WritePNG(w io.Writer, scale int) error {
	var out image.Image = c.img
	if scale > 1 {
		b := c.img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		xdraw.BiLinear.Scale(dst, dst.Bounds(), c.img, b, xdraw.Src, nil)
		out = dst
	}
	return png.Encode(w, out)
}

func (c *Canvas) SavePNG(path string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating preview file: %w", err)
	}
	if err := c.WritePNG(f, scale); err != nil {
		f.Close()
		return fmt.Errorf("encoding preview: %w", err)
	}
	return f.Close()
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func smoothstep(e0, e1, x float32) float32 {
	t := mgl32.Clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func blend(dst uint8, src, alpha float32) uint8 {
	v := float32(dst)*(1-alpha) + mgl32.Clamp(src, 0, 1)*255*alpha
	return uint8(mgl32.Clamp(v+0.5, 0, 255))
}
