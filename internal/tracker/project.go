// Public domain.

package tracker

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soniakeys/polaralign/internal/topo"
)

// Project returns the pixel position of sky coordinate s in an image
// centered on c, rotated by position angle pa, with scale arc seconds per
// pixel.  The image center is at pixel center.
//
// The projection is gnomonic.  S and c must have the same epoch.
func Project(s, c topo.Equatorial, pa unit.Angle, center r2.Vec,
	scale float64) r2.Vec {
	sd, cd := math.Sincos(s.Dec.Rad())
	sd0, cd0 := math.Sincos(c.Dec.Rad())
	sa, ca := math.Sincos(s.RA.Rad() - c.RA.Rad())
	den := sd*sd0 + cd*cd0*ca
	ξ := cd * sa / den
	η := (sd*cd0 - cd*sd0*ca) / den
	sp, cp := math.Sincos(pa.Rad())
	rad := unit.AngleFromSec(scale).Rad()
	return r2.Vec{
		X: center.X - (ξ*cp+η*sp)/rad,
		Y: center.Y - (-ξ*sp+η*cp)/rad,
	}
}

// Shift is the inverse of Project, returning the sky coordinate at pixel p.
func Shift(p r2.Vec, c topo.Equatorial, pa unit.Angle, center r2.Vec,
	scale float64) topo.Equatorial {
	rad := unit.AngleFromSec(scale).Rad()
	u := (center.X - p.X) * rad
	v := (center.Y - p.Y) * rad
	sp, cp := math.Sincos(pa.Rad())
	ξ := u*cp - v*sp
	η := u*sp + v*cp
	sd0, cd0 := math.Sincos(c.Dec.Rad())
	dec := math.Atan2(sd0+η*cd0, math.Hypot(ξ, cd0-η*sd0))
	ra := c.RA.Rad() + math.Atan2(ξ, cd0-η*sd0)
	return topo.Equatorial{
		Equa: coord.Equa{
			RA:  unit.RAFromRad(ra),
			Dec: unit.Angle(dec),
		},
		Epoch: c.Epoch,
	}
}
