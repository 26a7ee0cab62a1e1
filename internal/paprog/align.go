// Public domain.

package paprog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/axiserr"
	"github.com/soniakeys/polaralign/internal/position"
	"github.com/soniakeys/polaralign/internal/runfile"
	"github.com/soniakeys/polaralign/internal/topo"
	"github.com/soniakeys/polaralign/internal/tracker"
)

// aligner evaluates runs.  It is shared by the workers.
type aligner struct {
	opt *options
	log *slog.Logger
	ul  *log.Logger // per update error log, may be nil
}

// align evaluates one run and returns its output lines.
//
// Problems with a run are reported in its output rather than terminating
// the program.
func (a *aligner) align(ctx context.Context, r *runfile.Run) string {
	var b strings.Builder
	id := r.ID
	if err := r.Validate(); err != nil {
		fmt.Fprintf(&b, "%-8.8s  %v", id, err)
		return b.String()
	}
	obs := r.TopoObserver()
	rp := r.Refraction(a.opt.wavelength)
	var s [3]position.Sample
	for i, rs := range r.Samples {
		s[i] = rs.Sample()
	}
	a.checkDistance(id, s)

	eo := axiserr.DefaultOptions()
	eo.RefractPole = a.opt.refractPole
	eo.MinPositionAngleSpread = a.opt.minSpread
	eo.Logger = a.log.With("run", id)
	est, err := axiserr.Estimate(s[0], s[1], s[2], obs, rp, eo)
	if err != nil {
		fmt.Fprintf(&b, "%-8.8s  %v", id, err)
		return b.String()
	}
	northern := obs.Northern()
	init := est.Initial()
	fmt.Fprintf(&b, "%-8.8s %s", id, formatError(init, northern))
	if est.LowConfidence {
		b.WriteString(" (low confidence)")
	}
	a.logUpdate(id, obs, init)
	if init.Within(a.opt.tolerance) {
		b.WriteString("\n           within tolerance")
		return b.String()
	}
	if a.opt.live && r.Live != nil {
		a.track(ctx, &b, r, est)
	}
	return b.String()
}

// track follows the live sequence of a run, one line per solve.
func (a *aligner) track(ctx context.Context, b *strings.Builder,
	r *runfile.Run, est *axiserr.Estimator) {
	l := r.Live
	cfg := tracker.Config{
		PixelScale: l.PixelScale,
		Center:     l.CenterVec(),
		Logger:     a.log.With("run", r.ID),
		OnUpdate: func(e axiserr.AxisError) {
			a.logUpdate(r.ID, est.Observer, e)
		},
	}
	if len(l.Stars) > 0 {
		cfg.Detector = l
	}
	tr, err := tracker.Begin(est, cfg)
	if err != nil {
		fmt.Fprintf(b, "\n  live    %v", err)
		return
	}
	northern := est.Observer.Northern()
	for _, ls := range l.Solves {
		e, err := tr.Update(ctx, ls.Sample())
		switch {
		case errors.Is(err, tracker.ErrSolveFailed):
			fmt.Fprintf(b, "\n  %-6.6s  solve failed, holding %s",
				ls.Image, e)
			continue
		case err != nil:
			fmt.Fprintf(b, "\n  %-6.6s  %v", ls.Image, err)
			return
		}
		fmt.Fprintf(b, "\n  %-6.6s %s", ls.Image, formatError(e, northern))
		if e.Within(a.opt.tolerance) {
			b.WriteString("\n           within tolerance")
			return
		}
	}
}

// checkDistance warns when consecutive samples moved less than the
// expected distance in right ascension.
func (a *aligner) checkDistance(id string, s [3]position.Sample) {
	for i := 1; i < len(s); i++ {
		d := topo.RADistance(s[i-1].Coord.RA, s[i].Coord.RA)
		if d < a.opt.distance {
			a.log.Warn("samples close in right ascension", "run", id,
				"samples", fmt.Sprintf("%d-%d", i, i+1),
				"distance", d.Deg(), "expected", a.opt.distance.Deg())
		}
	}
}

func (a *aligner) logUpdate(id string, obs topo.Observer, e axiserr.AxisError) {
	if a.ul != nil {
		a.ul.Printf("%s %s %s", id, obs, e)
	}
}

// formatError formats the columns of an error line.  Components that
// round to zero get no hint.
func formatError(e axiserr.AxisError, northern bool) string {
	alt, az := arcmin(e.Altitude), arcmin(e.Azimuth)
	var hints []string
	if alt != 0 {
		hints = append(hints, e.AltitudeHint(northern))
	}
	if az != 0 {
		hints = append(hints, e.AzimuthHint(northern))
	}
	return strings.TrimRight(fmt.Sprintf("%8.2f %8.2f %8.2f  %s",
		alt, az, arcmin(e.Total), strings.Join(hints, ", ")), " ")
}

// arcmin returns a in arc minutes, 0 if it would print as zero.
func arcmin(a unit.Angle) float64 {
	if m := a.Min(); math.Abs(m) >= .005 {
		return m
	}
	return 0
}
