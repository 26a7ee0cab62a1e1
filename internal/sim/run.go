// Public domain.

package sim

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soniakeys/polaralign/internal/runfile"
	"github.com/soniakeys/polaralign/internal/tracker"
)

// RunConfig describes a simulated alignment run.
type RunConfig struct {
	StartAz, StartAlt, Step unit.Angle

	// Live solves follow the three samples, solve k taken after the
	// adjusters removed fraction k*Fraction of the error.
	LiveSteps  int
	Fraction   float64
	PixelScale float64 // arc seconds per pixel
	Center     r2.Vec

	// FieldStars is the number of stars detected in each live image
	// besides the reference star.  Their positions are random so
	// Mount.Rand must be set.
	FieldStars int

	Weather *runfile.Weather // recorded as is
}

// minStarSeparation keeps field stars from being mistaken for the
// reference star.
const minStarSeparation = 50 // pixels

// Run returns the run file description of an alignment of m.
//
// The reference star of the live sequence is the center of the third
// sample.
func (m *Mount) Run(cfg RunConfig) runfile.Run {
	r := runfile.Run{
		ID: uuid.NewString(),
		Observer: runfile.Observer{
			Latitude:  m.Observer.Lat.Deg(),
			Longitude: m.Observer.Lon.Deg(),
			Elevation: m.Observer.Elevation,
		},
		Weather: cfg.Weather,
	}
	s := m.Samples(cfg.StartAz, cfg.StartAlt, cfg.Step, 3)
	for _, p := range s {
		r.Samples = append(r.Samples, runfile.FromSample(p))
	}
	if cfg.LiveSteps <= 0 {
		return r
	}
	frame := s[2]
	live := &runfile.Live{
		PixelScale: cfg.PixelScale,
		Center:     [2]float64{cfg.Center.X, cfg.Center.Y},
		Stars:      map[string][][2]float64{},
	}
	v := m.Pointing(cfg.StartAz, cfg.StartAlt, cfg.Step, 2)
	for k := 1; k <= cfg.LiveSteps; k++ {
		id := fmt.Sprintf("live-%d", k)
		ls := m.Solve(m.Corrected(v, float64(k)*cfg.Fraction),
			frame.PositionAngle, id)
		live.Solves = append(live.Solves, runfile.FromSample(ls))
		p := tracker.Project(frame.Coord, ls.Coord, ls.PositionAngle,
			cfg.Center, cfg.PixelScale)
		stars := [][2]float64{{p.X, p.Y}}
		for len(stars) <= cfg.FieldStars {
			f := r2.Vec{
				X: 2 * cfg.Center.X * m.Rand.Float64(),
				Y: 2 * cfg.Center.Y * m.Rand.Float64(),
			}
			if r2.Norm(r2.Sub(f, p)) > minStarSeparation {
				stars = append(stars, [2]float64{f.X, f.Y})
			}
		}
		live.Stars[id] = stars
	}
	r.Live = live
	return r
}
