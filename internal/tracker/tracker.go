// Public domain.

// Package tracker follows the polar axis error live while the operator
// turns the alignment adjusters.
//
// After a three point estimate, the mount's alignment adjustments carry the
// reference frame toward a destination on the sky.  The tracker projects
// the starting point, the destination and the two single axis
// destinations into the pixel grid of the latest plate solve and
// decomposes the image center's progress toward the destination into
// azimuth and altitude fractions of the initial error.  Between plate
// solves, the displacement of a reference star stands in for a new solve.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soniakeys/polaralign/internal/axiserr"
	"github.com/soniakeys/polaralign/internal/position"
	"github.com/soniakeys/polaralign/internal/topo"
)

var (
	// ErrSolveFailed is returned by Update for a sample without a plate
	// solution.  The error estimate is unchanged.
	ErrSolveFailed = axiserr.ErrSolveFailed

	// ErrNoDetector is returned by SelectStar without a Detector.
	ErrNoDetector = errors.New("no star detector configured")
)

// guards for the image plane geometry
const (
	minBaseline = 1e-6 // pixels
	minSine     = 1e-9 // of the angle between intersecting lines
)

// Config holds the image geometry and collaborators of a Tracker.
type Config struct {
	// Star is the sky coordinate of the reference star.  Nil selects
	// the center of the reference frame.
	Star *topo.Equatorial

	PixelScale float64 // arc seconds per pixel
	Center     r2.Vec  // image center, pixels

	// Detector, if non-nil, re-acquires the reference star after the
	// field drifts.
	Detector Detector

	Logger *slog.Logger

	// OnUpdate, if non-nil, is called with each new estimate.  It runs
	// with the tracker locked and must not call back into it.
	OnUpdate func(axiserr.AxisError)
}

// Figure is the correction figure in pixels.
type Figure struct {
	Origin, Altitude, Azimuth, Total r2.Vec
}

// Detail describes the latest estimate for display.
//
// Initial has the starting point, the altitude only and azimuth only
// destinations and the full destination.  Current has the image center,
// the altitude and azimuth corrected points and the destination.  Both
// are translated so the image center falls on the reference star.
type Detail struct {
	Error   axiserr.AxisError
	Initial Figure
	Current Figure
	Star    r2.Vec // reference star pixel
	Anchor  position.Sample
}

// Tracker maintains the current axis error.
//
// Methods may be called from multiple goroutines; they are serialized.
type Tracker struct {
	est   *axiserr.Estimator
	cfg   Config
	log   *slog.Logger
	cache *DetectionCache

	// sky points of the correction figure
	origin, destination, azOnly, altOnly topo.Equatorial

	mu        sync.Mutex
	anchor    position.Sample
	star      topo.Equatorial
	starPixel r2.Vec
	current   axiserr.AxisError
	detail    Detail
}

// Begin starts tracking from the result of a three point estimate.
func Begin(est *axiserr.Estimator, cfg Config) (*Tracker, error) {
	if !(cfg.PixelScale > 0) {
		return nil, fmt.Errorf("invalid pixel scale %g", cfg.PixelScale)
	}
	t := &Tracker{
		est:     est,
		cfg:     cfg,
		log:     cfg.Logger,
		anchor:  est.Frame,
		current: est.Initial(),
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if cfg.Detector != nil {
		t.cache = NewDetectionCache(cfg.Detector)
	}
	azOff, altOff := est.CorrectionOffsets(1)
	t.origin = est.Frame.Coord
	t.destination = est.DestinationEquatorial(azOff, altOff)
	t.azOnly = est.DestinationEquatorial(azOff, 0)
	t.altOnly = est.DestinationEquatorial(0, altOff)

	t.star = t.origin
	if cfg.Star != nil {
		t.star = t.frameEpoch(*cfg.Star)
	}
	t.starPixel = t.project(t.star)
	t.calculate(cfg.Center)
	return t, nil
}

// Current returns the current error estimate.
func (t *Tracker) Current() axiserr.AxisError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Detail returns the figure of the current estimate.
func (t *Tracker) Detail() Detail {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detail
}

// Update re-estimates the error from a new plate solve.
//
// A failed solve returns the held estimate and ErrSolveFailed.  When the
// solve has drifted from the previous one by more than a pixel and a
// Detector is configured, the reference star is re-acquired in the new
// image.  Other errors are only from ctx.
func (t *Tracker) Update(ctx context.Context, psr position.Sample) (axiserr.AxisError, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !psr.Success {
		t.log.Warn("plate solve failed, holding estimate",
			"image", psr.ImageID)
		return t.current, ErrSolveFailed
	}
	psr.Coord = t.frameEpoch(psr.Coord)
	drift := psr.Coord.Distance(t.anchor.Coord)
	t.anchor = psr
	t.starPixel = t.project(t.star)
	if drift.Sec() > t.cfg.PixelScale {
		if err := t.reacquire(ctx, psr.ImageID); err != nil {
			return t.current, err
		}
	}
	t.calculate(t.cfg.Center)
	return t.current, nil
}

// UpdateStar re-estimates the error from the pixel position of the
// reference star in an image taken since the last plate solve.
func (t *Tracker) UpdateStar(p r2.Vec) axiserr.AxisError {
	t.mu.Lock()
	defer t.mu.Unlock()
	expected := t.project(t.star)
	t.starPixel = p
	t.calculate(r2.Add(t.cfg.Center, r2.Sub(expected, p)))
	return t.current
}

// SelectStar makes the star nearest pixel p of image imageID, which must
// be the image of the latest plate solve, the reference star.
func (t *Tracker) SelectStar(ctx context.Context, imageID string, p r2.Vec) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache == nil {
		return ErrNoDetector
	}
	s, err := t.cache.Closest(ctx, imageID, p)
	if err != nil {
		return fmt.Errorf("select star in %s: %w", imageID, err)
	}
	t.starPixel = s
	t.star = t.shift(s)
	t.calculate(t.cfg.Center)
	return nil
}

// reacquire finds the reference star near its projected position in image
// id.  A missing star is not an error; the projected position is kept.
func (t *Tracker) reacquire(ctx context.Context, id string) error {
	if t.cache == nil || id == "" {
		return nil
	}
	s, err := t.cache.Closest(ctx, id, t.starPixel)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.log.Warn("reference star not found, keeping projected position",
			"image", id, "err", err)
		return nil
	}
	t.starPixel = s
	t.star = t.shift(s)
	return nil
}

// calculate decomposes the progress of image center c toward the
// destination, all projected into the pixel grid of the anchor.
func (t *Tracker) calculate(c r2.Vec) {
	o := t.project(t.origin)
	d := t.project(t.destination)
	a := t.project(t.azOnly)
	l := t.project(t.altOnly)
	azBase := r2.Sub(a, o)
	altBase := r2.Sub(l, o)

	qAz, okAz := corrected(c, azBase, a, r2.Sub(d, a))
	qAlt, okAlt := corrected(c, altBase, l, r2.Sub(d, l))

	init := t.est.Initial()
	az, alt := t.current.Azimuth, t.current.Altitude
	if okAz {
		f := r2.Norm(r2.Sub(c, qAz)) / r2.Norm(azBase)
		s := r2.Dot(r2.Sub(qAz, c), azBase)
		if okAlt {
			s = r2.Dot(r2.Sub(d, qAlt), r2.Sub(d, l))
		}
		if s < 0 {
			f = -f
		}
		az = unit.Angle(f * init.Azimuth.Rad())
	} else if init.Azimuth != 0 {
		t.log.Warn("azimuth correction undefined, holding estimate")
	}
	if okAlt {
		f := r2.Norm(r2.Sub(c, qAlt)) / r2.Norm(altBase)
		s := r2.Dot(r2.Sub(qAlt, c), altBase)
		if okAz {
			s = r2.Dot(r2.Sub(d, qAz), r2.Sub(d, a))
		}
		if s < 0 {
			f = -f
		}
		alt = unit.Angle(f * init.Altitude.Rad())
	} else if init.Altitude != 0 {
		t.log.Warn("altitude correction undefined, holding estimate")
	}
	t.current = axiserr.NewAxisError(alt, az)

	off := r2.Sub(t.starPixel, c)
	t.detail = Detail{
		Error:   t.current,
		Initial: Figure{o, l, a, d}.translate(off),
		Current: Figure{c, qAlt, qAz, d}.translate(off),
		Star:    t.starPixel,
		Anchor:  t.anchor,
	}
	t.log.Debug("error updated",
		"image", t.anchor.ImageID,
		"error", t.current.String())
	if t.cfg.OnUpdate != nil {
		t.cfg.OnUpdate(t.current)
	}
}

// corrected returns the intersection of the line through c along base with
// the line through p along w, the point where the correction along base is
// complete.  If w vanishes, as when the other axis has no error, the
// perpendicular of base is used.
func corrected(c, base, p, w r2.Vec) (r2.Vec, bool) {
	lb := r2.Norm(base)
	if lb < minBaseline {
		return r2.Vec{}, false
	}
	if r2.Norm(w) < minBaseline {
		w = r2.Vec{X: -base.Y, Y: base.X}
	}
	den := r2.Cross(base, w)
	if math.Abs(den) <= minSine*lb*r2.Norm(w) {
		return r2.Vec{}, false
	}
	s := r2.Cross(r2.Sub(p, c), w) / den
	return r2.Add(c, r2.Scale(s, base)), true
}

func (f Figure) translate(off r2.Vec) Figure {
	return Figure{
		Origin:   r2.Add(f.Origin, off),
		Altitude: r2.Add(f.Altitude, off),
		Azimuth:  r2.Add(f.Azimuth, off),
		Total:    r2.Add(f.Total, off),
	}
}

func (t *Tracker) project(e topo.Equatorial) r2.Vec {
	return Project(e, t.anchor.Coord, t.anchor.PositionAngle,
		t.cfg.Center, t.cfg.PixelScale)
}

func (t *Tracker) shift(p r2.Vec) topo.Equatorial {
	return Shift(p, t.anchor.Coord, t.anchor.PositionAngle,
		t.cfg.Center, t.cfg.PixelScale)
}

// frameEpoch returns e in the epoch of the reference frame.
func (t *Tracker) frameEpoch(e topo.Equatorial) topo.Equatorial {
	f := t.est.Frame
	return e.ToEpoch(f.Coord.Epoch, f.ObservedAt)
}
