// Public domain.

package axiserr

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/sphvec"
	"github.com/soniakeys/polaralign/internal/topo"
)

// Adjust returns direction v as moved by the alignment adjusters of a
// mount whose polar axis is at azimuth axisAz.
//
// The azimuth adjustment turns everything about the zenith so azimuths
// increase by azOff.  The altitude adjustment then turns about the
// horizontal pivot perpendicular to the adjusted axis azimuth so the axis
// rises by altOff.
func Adjust(v *coord.Cart, axisAz, azOff, altOff unit.Angle) coord.Cart {
	r := sphvec.Rotate(v, &sphvec.Zenith, -azOff)
	// a positive turn about the pivot lowers the axis
	k := sphvec.FromHorizontal(axisAz+azOff-math.Pi/2, 0)
	return sphvec.Rotate(&r, &k, -altOff)
}

// CorrectionOffsets returns the azimuth and altitude adjustments that
// remove fraction f of the initial error.
//
// The azimuth offset is -f × Azimuth in both hemispheres.  The altitude
// offset is -f × Altitude in the north and +f × Altitude in the south,
// where a positive altitude error means the axis is too low.
func (e *Estimator) CorrectionOffsets(f float64) (azOff, altOff unit.Angle) {
	azOff = unit.Angle(-f * e.initial.Azimuth.Rad())
	altOff = unit.Angle(-f * e.initial.Altitude.Rad())
	if !e.Observer.Northern() {
		altOff = -altOff
	}
	return
}

// DestinationCoordinates returns where the reference frame will be after
// adjusting the mount by azOff in azimuth and altOff in axis altitude.
//
// The result is apparent when the estimator has refraction parameters.
func (e *Estimator) DestinationCoordinates(azOff, altOff unit.Angle) topo.Horizontal {
	v := Adjust(&e.Positions[2].Vector, e.Axis.Horizontal.Az, azOff, altOff)
	return topo.FromCart(&v, e.Observer, e.Frame.ObservedAt)
}

// DestinationEquatorial returns DestinationCoordinates as an equatorial
// coordinate with the epoch of the reference frame, refraction removed.
func (e *Estimator) DestinationEquatorial(azOff, altOff unit.Angle) topo.Equatorial {
	return topo.HzToEq(e.DestinationCoordinates(azOff, altOff),
		e.Refraction, e.Frame.Coord.Epoch)
}
