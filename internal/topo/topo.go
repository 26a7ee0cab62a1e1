// Public domain.

// Package topo transforms between equatorial and horizontal coordinates
// for an observer on the Earth's surface.
//
// Equatorial coordinates are carried with an epoch, either J2000 as plate
// solvers report them or JNow, the mean equator and equinox of date.
// Conversion between the two is by precession only, and sidereal time is
// mean sidereal time to match.  Nutation and aberration are below a few
// tens of arc seconds and affect all three alignment samples nearly
// equally, so they are not modeled.
package topo

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/meeus/v3/base"
	mcoord "github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/sidereal"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/refract"
	"github.com/soniakeys/polaralign/internal/sphvec"
)

// Observer is a location on the Earth.
type Observer struct {
	Lat       unit.Angle // geodetic latitude
	Lon       unit.Angle // longitude, east positive
	Elevation float64    // meters
}

// Northern reports whether the observer is north of the equator.
func (o Observer) Northern() bool { return o.Lat > 0 }

func (o Observer) String() string {
	return fmt.Sprintf("lat %.0s lon %.0s", sexa.FmtAngle(o.Lat),
		sexa.FmtAngle(o.Lon))
}

// Epoch identifies the equator and equinox of equatorial coordinates.
type Epoch int

const (
	J2000 Epoch = iota
	JNow
)

func (e Epoch) String() string {
	if e == JNow {
		return "JNOW"
	}
	return "J2000"
}

// Equatorial is a right ascension and declination with its epoch.
type Equatorial struct {
	coord.Equa
	Epoch Epoch
}

// NewEquatorial constructs an Equatorial from RA and Dec in degrees.
func NewEquatorial(raDeg, decDeg float64, e Epoch) Equatorial {
	return Equatorial{
		Equa: coord.Equa{
			RA:  unit.RAFromDeg(raDeg),
			Dec: unit.AngleFromDeg(decDeg),
		},
		Epoch: e,
	}
}

func (e Equatorial) String() string {
	return fmt.Sprintf("RA %.1s Dec %.0s %s",
		sexa.FmtRA(e.RA), sexa.FmtAngle(e.Dec), e.Epoch)
}

// ToEpoch returns e precessed to epoch to.  Time t gives the date of JNow.
func (e Equatorial) ToEpoch(to Epoch, t time.Time) Equatorial {
	if e.Epoch == to {
		return e
	}
	jy := base.JDEToJulianYear(julian.TimeToJD(t))
	from, dest := 2000., jy
	if e.Epoch == JNow {
		from, dest = jy, 2000
	}
	in := mcoord.Equatorial{RA: e.RA, Dec: e.Dec}
	var out mcoord.Equatorial
	precess.NewPrecessor(from, dest).Precess(&in, &out)
	return Equatorial{
		Equa:  coord.Equa{RA: out.RA, Dec: out.Dec},
		Epoch: to,
	}
}

// Cart returns e as a unit vector in the equatorial frame.
func (e Equatorial) Cart() coord.Cart {
	sr, cr := math.Sincos(e.RA.Rad())
	sd, cd := math.Sincos(e.Dec.Rad())
	return coord.Cart{X: cd * cr, Y: cd * sr, Z: sd}
}

// Distance returns the great circle separation of e and b.
//
// Both must have the same epoch.
func (e Equatorial) Distance(b Equatorial) unit.Angle {
	u, v := e.Cart(), b.Cart()
	return sphvec.Separation(&u, &v)
}

// RADistance returns the separation in right ascension of a and b,
// in the range [0, 180°].
func RADistance(a, b unit.RA) unit.Angle {
	d := math.Abs(a.Deg() - b.Deg())
	return unit.AngleFromDeg(180 - math.Abs(d-180))
}

// Horizontal is an azimuth and altitude seen by an observer at an instant.
//
// Azimuth is measured from north through east, in the range [0, 360°).
type Horizontal struct {
	Az, Alt  unit.Angle
	Observer Observer
	Time     time.Time
}

func (h Horizontal) String() string {
	return fmt.Sprintf("Az %.0s Alt %.0s", sexa.FmtAngle(h.Az),
		sexa.FmtAngle(h.Alt))
}

// Cart returns h as a vector of the sphvec frame.
func (h Horizontal) Cart() coord.Cart {
	return sphvec.FromHorizontal(h.Az, h.Alt)
}

// FromCart returns the horizontal coordinates of vector v.
func FromCart(v *coord.Cart, obs Observer, t time.Time) Horizontal {
	az, alt := sphvec.Horizontal(v)
	return Horizontal{Az: az, Alt: alt, Observer: obs, Time: t}
}

// LocalSidereal returns the mean local sidereal time as an angle.
//
// Mean sidereal time goes with coordinates referred to the mean equator
// and equinox of date, which is what ToEpoch gives for JNow.
func LocalSidereal(obs Observer, t time.Time) unit.Angle {
	gst := sidereal.Mean(julian.TimeToJD(t))
	return unit.Angle(unit.PMod(gst.Rad()+obs.Lon.Rad(), 2*math.Pi))
}

// SignedAngle normalizes a to the range (-π, π].
func SignedAngle(a unit.Angle) unit.Angle {
	r := unit.PMod(a.Rad()+math.Pi, 2*math.Pi) - math.Pi
	if r == -math.Pi {
		r = math.Pi
	}
	return unit.Angle(r)
}

// EqToHz returns the horizontal coordinates of eq for observer obs at
// time t.
//
// The altitude returned is apparent, raised by refraction, when rp is
// non-nil.
func EqToHz(eq Equatorial, obs Observer, t time.Time,
	rp *refract.Params) Horizontal {
	eq = eq.ToEpoch(JNow, t)
	// meeus azimuth is from the south, longitude positive west
	A, h := mcoord.EqToHz(eq.RA, eq.Dec, obs.Lat, -obs.Lon,
		sidereal.Mean(julian.TimeToJD(t)))
	return Horizontal{
		Az:       unit.Angle(unit.PMod(A.Rad()+math.Pi, 2*math.Pi)),
		Alt:      rp.Apparent(h),
		Observer: obs,
		Time:     t,
	}
}

// HzToEq is the inverse of EqToHz.  The result has epoch e.
//
// Hz.Alt is taken as apparent and refraction is removed when rp is
// non-nil.
func HzToEq(hz Horizontal, rp *refract.Params, e Epoch) Equatorial {
	obs := hz.Observer
	ra, dec := mcoord.HzToEq(hz.Az-math.Pi, rp.True(hz.Alt), obs.Lat,
		-obs.Lon, sidereal.Mean(julian.TimeToJD(hz.Time)))
	eq := Equatorial{
		Equa:  coord.Equa{RA: ra, Dec: dec},
		Epoch: JNow,
	}
	return eq.ToEpoch(e, hz.Time)
}
