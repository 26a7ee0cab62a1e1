// Public domain.

// Package axiserr implements three point polar alignment.
//
// A mount rotating about its polar axis carries the telescope around a
// small circle on the sky.  Three pointing directions on that circle
// determine the plane of the circle, and the plane's normal is the axis.
// The axis is compared to the celestial pole to give the misalignment as
// an altitude and an azimuth error.
package axiserr

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/position"
	"github.com/soniakeys/polaralign/internal/refract"
	"github.com/soniakeys/polaralign/internal/sphvec"
	"github.com/soniakeys/polaralign/internal/topo"
)

var (
	// ErrDegenerateGeometry is returned when the sample directions do not
	// determine a plane, as when two of them coincide.
	ErrDegenerateGeometry = errors.New("samples do not determine a plane")

	// ErrSolveFailed is returned for a sample without a plate solution.
	ErrSolveFailed = errors.New("plate solve failed")
)

// degenerateLength is the plane normal length below which no axis is
// computed.
const degenerateLength = 1e-12

// Options control the advisory confidence checks of Estimate.
//
// Zero thresholds disable the corresponding check.
type Options struct {
	RefractPole            bool // compare to the refracted pole
	MinNormalLength        float64
	MinPositionAngleSpread unit.Angle
	Logger                 *slog.Logger
}

// DefaultOptions returns the thresholds used by the command line program.
func DefaultOptions() Options {
	return Options{
		MinNormalLength:        1e-8,
		MinPositionAngleSpread: unit.AngleFromDeg(5),
	}
}

// Estimator holds the result of a three point alignment.
//
// The fields are set by Estimate and should be treated as read only.
type Estimator struct {
	Observer   topo.Observer
	Refraction *refract.Params
	Positions  [3]position.Position
	Frame      position.Sample   // reference frame, the third sample
	Axis       position.Position // fitted mount axis
	Pole       unit.Angle        // altitude the axis should have

	// quality of the fit
	NormalLength  float64    // plane normal length before normalization
	Rotation      unit.Angle // about the axis, first to last sample
	LowConfidence bool
	Warnings      []string

	initial AxisError
	log     *slog.Logger
}

// Estimate computes the polar axis error from three plate solved samples
// taken while rotating the mount about its polar axis.
//
// Rp, if non-nil, gives the atmosphere at the time of the samples.  The
// samples are then converted to the apparent directions the telescope
// pointed at.  With opt.RefractPole the axis is compared to the apparent
// rather than the true pole.
//
// An error is returned when a sample was not solved or the samples do not
// determine a plane.  Poorly conditioned samples give a result with
// LowConfidence set.
func Estimate(s1, s2, s3 position.Sample, obs topo.Observer,
	rp *refract.Params, opt Options) (*Estimator, error) {
	for i, s := range []position.Sample{s1, s2, s3} {
		if !s.Success {
			return nil, fmt.Errorf("sample %d: %w", i+1, ErrSolveFailed)
		}
	}
	e := &Estimator{
		Observer:   obs,
		Refraction: rp,
		Frame:      s3,
		log:        opt.Logger,
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	for i, s := range []position.Sample{s1, s2, s3} {
		e.Positions[i] = position.New(s, obs, rp)
	}
	if err := e.fit(opt); err != nil {
		return nil, err
	}
	return e, nil
}

// fit determines the axis and the initial error.
func (e *Estimator) fit(opt Options) error {
	p := &e.Positions
	n, l := sphvec.PlaneNormal(&p[0].Vector, &p[1].Vector, &p[2].Vector)
	e.NormalLength = l
	if l < degenerateLength {
		return fmt.Errorf("normal length %g: %w", l, ErrDegenerateGeometry)
	}
	n = Orient(n, e.Observer.Northern())
	e.Axis = position.FromVector(n, e.Observer, e.Frame.ObservedAt)
	e.Rotation = rotation(&n, &p[0].Vector, &p[2].Vector)

	e.Pole = unit.Angle(math.Abs(e.Observer.Lat.Rad()))
	if opt.RefractPole && e.Refraction != nil {
		e.Pole = e.Refraction.Apparent(e.Pole)
	}
	e.initial = Decompose(e.Axis.Horizontal, e.Pole, e.Observer.Northern())
	e.assess(opt)
	e.log.Debug("axis fitted",
		"axis", e.Axis.Horizontal.String(),
		"pole", e.Pole.Deg(),
		"error", e.initial.String())
	return nil
}

// Orient returns n pointing to the hemisphere's visible pole, with a
// positive north component in the northern hemisphere and a negative
// one in the southern.
func Orient(n coord.Cart, northern bool) coord.Cart {
	if (northern && n.X < 0) || (!northern && n.X > 0) {
		return sphvec.Neg(&n)
	}
	return n
}

// Decompose returns the error of an axis at horizontal coordinates hz
// against a pole at altitude pole.
//
// In the north the altitude error is axis - pole and the azimuth error is
// the axis azimuth.  In the south the altitude error is pole - axis and
// the azimuth error is the axis azimuth less 180°.
func Decompose(hz topo.Horizontal, pole unit.Angle, northern bool) AxisError {
	if northern {
		return NewAxisError(hz.Alt-pole, hz.Az)
	}
	return NewAxisError(pole-hz.Alt, hz.Az+math.Pi)
}

// Initial returns the error determined from the three samples.
func (e *Estimator) Initial() AxisError { return e.initial }

// rotation returns the angle turned about axis n going from a to b.
func rotation(n, a, b *coord.Cart) unit.Angle {
	pa := perpendicular(a, n)
	pb := perpendicular(b, n)
	return sphvec.Separation(&pa, &pb)
}

// perpendicular returns the component of v perpendicular to unit vector n.
func perpendicular(v, n *coord.Cart) coord.Cart {
	var along coord.Cart
	along.MulScalar(n, sphvec.Project(v, n))
	return sphvec.Sub(v, &along)
}
