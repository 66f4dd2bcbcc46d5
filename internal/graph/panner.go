package graph

import "math"

// Vec3 is a position in listener space: +x right, +y up, -z in front.
type Vec3 struct {
	X, Y, Z float64
}

// Panner places a mono source in 3-D space around a listener at the origin
// facing -z. Direction uses equal-power panning on the azimuth; distance uses
// the inverse model with a reference distance of 1.
type Panner struct {
	Position Vec3
	left     float32
	right    float32
}

const (
	refDistance = 1.0
	rolloff     = 1.0
)

func NewPanner(pos Vec3) *Panner {
	p := &Panner{Position: pos}
	p.left, p.right = p.compute()
	return p
}

// Gains returns the left and right channel gains.
func (p *Panner) Gains() (float32, float32) {
	return p.left, p.right
}

func (p *Panner) compute() (float32, float32) {
	pos := p.Position
	dist := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	att := 1.0
	if dist > refDistance {
		att = refDistance / (refDistance + rolloff*(dist-refDistance))
	}
	if dist == 0 {
		g := float32(att * math.Sqrt2 / 2)
		return g, g
	}
	// azimuth in degrees, 0 = straight ahead, folded to the front half
	az := math.Atan2(pos.X, -pos.Z) * 180 / math.Pi
	if az > 90 {
		az = 180 - az
	} else if az < -90 {
		az = -180 - az
	}
	x := (az + 90) / 180
	return float32(att * math.Cos(x*math.Pi/2)), float32(att * math.Sin(x*math.Pi/2))
}

// HiHatPosition sweeps the hi-hat from left to right across the loop.
func HiHatPosition(step int) Vec3 {
	return Vec3{X: 0.5*float64(step) - 4, Y: 0, Z: -1}
}
