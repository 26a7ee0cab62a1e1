// Public domain.

// Package sim synthesizes plate solves for a mount with a misaligned
// polar axis.
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/polaralign/internal/axiserr"
	"github.com/soniakeys/polaralign/internal/position"
	"github.com/soniakeys/polaralign/internal/refract"
	"github.com/soniakeys/polaralign/internal/sphvec"
	"github.com/soniakeys/polaralign/internal/topo"
)

// Mount is a simulated equatorial mount.
//
// AzError and AltError are the displacement of the axis from the true
// pole, with the signs of axiserr.AxisError.
type Mount struct {
	Observer   topo.Observer
	AzError    unit.Angle
	AltError   unit.Angle
	Refraction *refract.Params // atmosphere seen by the plate solves
	Time       time.Time

	// Noise, if non-zero, is the standard deviation of gaussian noise
	// added to each solved coordinate.  Rand must then be set.
	Noise unit.Angle
	Rand  *xrand.Rand
}

// NewRand returns a generator for Mount.Rand.
func NewRand(seed uint64) *xrand.Rand {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)
	return rnd
}

// Axis returns the mount's polar axis.
func (m *Mount) Axis() topo.Horizontal {
	pole := unit.Angle(math.Abs(m.Observer.Lat.Rad()))
	hz := topo.Horizontal{Observer: m.Observer, Time: m.Time}
	if m.Observer.Northern() {
		hz.Az = m.AzError
		hz.Alt = pole + m.AltError
	} else {
		hz.Az = m.AzError + math.Pi
		hz.Alt = pole - m.AltError
	}
	hz.Az = unit.Angle(unit.PMod(hz.Az.Rad(), 2*math.Pi))
	return hz
}

// Pointing returns the direction of the telescope after i rotations by
// step about the axis from the direction at startAz, startAlt.
func (m *Mount) Pointing(startAz, startAlt, step unit.Angle, i int) coord.Cart {
	axis := m.Axis().Cart()
	v := sphvec.FromHorizontal(startAz, startAlt)
	return sphvec.Rotate(&v, &axis, unit.Angle(float64(i)*step.Rad()))
}

// Solve returns the plate solve of an image taken with the telescope
// pointing in direction v.
func (m *Mount) Solve(v coord.Cart, pa unit.Angle, id string) position.Sample {
	hz := topo.FromCart(&v, m.Observer, m.Time)
	eq := topo.HzToEq(hz, m.Refraction, topo.J2000)
	if m.Noise != 0 {
		eq.RA = unit.RAFromRad(eq.RA.Rad() +
			m.Noise.Rad()*m.Rand.NormFloat64()/math.Cos(eq.Dec.Rad()))
		eq.Dec += unit.Angle(m.Noise.Rad() * m.Rand.NormFloat64())
	}
	return position.Sample{
		Coord:         eq,
		PositionAngle: unit.Angle(unit.PMod(pa.Rad(), 2*math.Pi)),
		Success:       true,
		ObservedAt:    m.Time,
		ImageID:       id,
	}
}

// Samples returns the plate solves of n images taken rotating the mount
// by step between images, starting at startAz, startAlt.
//
// The camera turns with the mount so the position angle advances by step.
func (m *Mount) Samples(startAz, startAlt, step unit.Angle, n int) []position.Sample {
	s := make([]position.Sample, n)
	for i := range s {
		v := m.Pointing(startAz, startAlt, step, i)
		s[i] = m.Solve(v, unit.Angle(float64(i)*step.Rad()),
			fmt.Sprintf("frame-%d", i+1))
	}
	return s
}

// Corrected returns direction v after the alignment adjusters remove
// fraction f of the axis error.
func (m *Mount) Corrected(v coord.Cart, f float64) coord.Cart {
	azOff := unit.Angle(-f * m.AzError.Rad())
	altOff := unit.Angle(-f * m.AltError.Rad())
	if !m.Observer.Northern() {
		altOff = -altOff
	}
	return axiserr.Adjust(&v, m.Axis().Az, azOff, altOff)
}

// Correct moves the mount, removing fraction f of its axis error.
func (m *Mount) Correct(f float64) {
	m.AzError = unit.Angle((1 - f) * m.AzError.Rad())
	m.AltError = unit.Angle((1 - f) * m.AltError.Rad())
}
