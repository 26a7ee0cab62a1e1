// Public domain.

// Package position holds plate solve results and the telescope pointing
// directions derived from them.
package position

import (
	"math"
	"time"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/refract"
	"github.com/soniakeys/polaralign/internal/sphvec"
	"github.com/soniakeys/polaralign/internal/topo"
)

// Sample is the result of plate solving one image.
type Sample struct {
	Coord         topo.Equatorial
	PositionAngle unit.Angle
	Success       bool
	ObservedAt    time.Time
	ImageID       string
}

// Position is a pointing direction, in equatorial and horizontal
// coordinates and as a vector of the sphvec frame.
type Position struct {
	Coord         topo.Equatorial
	PositionAngle unit.Angle
	Horizontal    topo.Horizontal
	Vector        coord.Cart
}

// New derives the pointing direction of sample s for observer obs.
//
// When rp is non-nil the horizontal coordinates are apparent, where the
// telescope physically points.
func New(s Sample, obs topo.Observer, rp *refract.Params) Position {
	hz := topo.EqToHz(s.Coord, obs, s.ObservedAt, rp)
	return Position{
		Coord:         s.Coord,
		PositionAngle: s.PositionAngle,
		Horizontal:    hz,
		Vector:        hz.Cart(),
	}
}

// FromVector wraps a direction computed as a vector, such as a fitted
// axis.  The equatorial coordinate is derived without refraction.
func FromVector(v coord.Cart, obs topo.Observer, t time.Time) Position {
	v = sphvec.Unit(&v)
	hz := topo.FromCart(&v, obs, t)
	return Position{
		Coord:      topo.HzToEq(hz, nil, topo.J2000),
		Horizontal: hz,
		Vector:     v,
	}
}

// PositionAngleSpread returns the largest difference of position angle
// between any two of ps, taking wrap around into account.
func PositionAngleSpread(ps ...Position) unit.Angle {
	var max unit.Angle
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			d := unit.Angle(math.Abs(topo.SignedAngle(
				ps[i].PositionAngle - ps[j].PositionAngle).Rad()))
			if d > max {
				max = d
			}
		}
	}
	return max
}
