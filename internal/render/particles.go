package render

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// ParticleKind is one of the four particle populations.
type ParticleKind int

// Particle populations, in draw order.
const (
	ParticleRising ParticleKind = iota
	ParticleBurst
	ParticleOrbital
	ParticleDust
)

// Population weights in percent. Dust takes whatever rounding leaves over.
const (
	risingShare  = 40
	burstShare   = 35
	orbitalShare = 15
)

// ParticleParams are the inputs of the particle system.
type ParticleParams struct {
	Width, Height float64
	Time          float64
	Bass          float64 // Normalized, [0,1]
	Count         int
	Color         color.RGBA
}

// Particle is the state of one particle at an instant.
type Particle struct {
	Kind   ParticleKind
	X, Y   float64
	Radius float64
	Alpha  float64
}

// PopulationSizes splits count into rising, burst, orbital and dust populations.
func PopulationSizes(count int) (rising, burst, orbital, dust int) {
	if count <= 0 {
		return 0, 0, 0, 0
	}
	rising = count * risingShare / 100
	burst = count * burstShare / 100
	orbital = count * orbitalShare / 100
	dust = count - rising - burst - orbital
	return rising, burst, orbital, dust
}

// Particles computes every particle for p.
//
// Per-particle parameters come from a hash of the particle index, never from a
// clock or a shared random source, so the same params always give the same result.
func Particles(p ParticleParams) []Particle {
	rising, burst, orbital, dust := PopulationSizes(p.Count)
	out := make([]Particle, 0, p.Count)

	i := 0
	for n := 0; n < rising; n, i = n+1, i+1 {
		out = append(out, risingParticle(p, i))
	}
	for n := 0; n < burst; n, i = n+1, i+1 {
		out = append(out, burstParticle(p, i))
	}
	for n := 0; n < orbital; n, i = n+1, i+1 {
		out = append(out, orbitalParticle(p, i))
	}
	for n := 0; n < dust; n, i = n+1, i+1 {
		out = append(out, dustParticle(p, i))
	}
	return out
}

// DrawParticles draws the particles of p onto dc.
func DrawParticles(dc *gg.Context, p ParticleParams) {
	for _, pt := range Particles(p) {
		if pt.Alpha <= 0 || pt.Radius <= 0 {
			continue
		}
		dc.SetColor(withAlpha(p.Color, pt.Alpha))
		dc.DrawCircle(pt.X, pt.Y, pt.Radius)
		dc.Fill()
	}
}

// risingParticle drifts upward and wraps from top to bottom, twinkling as it goes.
// The index hash is the vertical phase.
func risingParticle(p ParticleParams, i int) Particle {
	speed := 25 + hash01(i, 2)*70
	y := p.Height - wrap(hash01(i, 3)*p.Height+p.Time*speed, p.Height+10)
	x := hash01(i, 1)*p.Width + math.Sin(p.Time*0.6+hash01(i, 4)*2*math.Pi)*18
	twinkle := 0.35 + 0.65*math.Abs(math.Sin(p.Time*2.5+float64(i)))
	return Particle{
		Kind:   ParticleRising,
		X:      x,
		Y:      y,
		Radius: 1 + hash01(i, 5)*2 + p.Bass*1.5,
		Alpha:  twinkle * (0.6 + 0.4*p.Bass),
	}
}

// burstParticle flies outward from the center and restarts every cycle.
func burstParticle(p ParticleParams, i int) Particle {
	phase := wrap(p.Time*(0.35+hash01(i, 6)*0.3)+hash01(i, 7), 1)
	angle := hash01(i, 8) * 2 * math.Pi
	dist := phase * math.Min(p.Width, p.Height) * 0.55 * (0.6 + 0.4*p.Bass)
	return Particle{
		Kind:   ParticleBurst,
		X:      p.Width/2 + math.Cos(angle)*dist,
		Y:      p.Height/2 + math.Sin(angle)*dist,
		Radius: 1.2 + p.Bass*2.5*(1-phase),
		Alpha:  (1 - phase) * (0.5 + 0.5*p.Bass),
	}
}

// orbitalParticle circles the center at its own radius and speed.
func orbitalParticle(p ParticleParams, i int) Particle {
	radius := math.Min(p.Width, p.Height) * (0.18 + hash01(i, 9)*0.3)
	speed := 0.2 + hash01(i, 10)*0.7
	if i%2 == 1 {
		speed = -speed
	}
	angle := hash01(i, 11)*2*math.Pi + p.Time*speed
	return Particle{
		Kind:   ParticleOrbital,
		X:      p.Width/2 + math.Cos(angle)*radius,
		Y:      p.Height/2 + math.Sin(angle)*radius,
		Radius: 1 + hash01(i, 12)*1.5,
		Alpha:  0.4 + 0.4*math.Abs(math.Sin(p.Time*3+float64(i)*0.7)),
	}
}

// dustParticle hovers near a fixed spot.
func dustParticle(p ParticleParams, i int) Particle {
	return Particle{
		Kind:   ParticleDust,
		X:      hash01(i, 13)*p.Width + math.Sin(p.Time*0.3+float64(i)*1.7)*6,
		Y:      hash01(i, 14)*p.Height + math.Cos(p.Time*0.23+float64(i)*2.3)*6,
		Radius: 0.8 + hash01(i, 15)*1.2,
		Alpha:  0.12 + hash01(i, 16)*0.2,
	}
}
