// Public domain.

package axiserr

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/topo"
)

// AxisError is the misalignment of a polar axis.
//
// Altitude is positive when the axis points above the pole (north) or
// below it (south).  Azimuth is positive when the axis points east of the
// pole in the north, west of it in the south.  Both are in (-180°, 180°].
type AxisError struct {
	Altitude, Azimuth unit.Angle
	Total             unit.Angle
}

// NewAxisError normalizes the components and computes Total.
func NewAxisError(alt, az unit.Angle) AxisError {
	alt = topo.SignedAngle(alt)
	az = topo.SignedAngle(az)
	return AxisError{
		Altitude: alt,
		Azimuth:  az,
		Total:    unit.Angle(math.Hypot(alt.Rad(), az.Rad())),
	}
}

// Within reports whether the total error is no more than tol.
func (e AxisError) Within(tol unit.Angle) bool {
	return e.Total <= tol
}

// Scale returns e with both components multiplied by the corresponding
// factors.
func (e AxisError) Scale(altFactor, azFactor float64) AxisError {
	return NewAxisError(unit.Angle(e.Altitude.Rad()*altFactor),
		unit.Angle(e.Azimuth.Rad()*azFactor))
}

// String formats the components in arc minutes.
func (e AxisError) String() string {
	return fmt.Sprintf("alt %+.2f′ az %+.2f′ total %.2f′",
		e.Altitude.Min(), e.Azimuth.Min(), e.Total.Min())
}

// AltitudeHint returns the direction to move the axis in altitude,
// empty when there is no altitude error.
func (e AxisError) AltitudeHint(northern bool) string {
	if e.Altitude == 0 {
		return ""
	}
	if (e.Altitude > 0) == northern {
		return "move down"
	}
	return "move up"
}

// AzimuthHint returns the direction to move the axis in azimuth, as seen
// facing the pole.
func (e AxisError) AzimuthHint(northern bool) string {
	switch {
	case e.Azimuth > 0 && northern:
		return "move left/west"
	case e.Azimuth > 0:
		return "move left/east"
	case e.Azimuth < 0 && northern:
		return "move right/east"
	case e.Azimuth < 0:
		return "move right/west"
	}
	return ""
}
