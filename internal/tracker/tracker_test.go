// Public domain.

package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soniakeys/polaralign/internal/axiserr"
	"github.com/soniakeys/polaralign/internal/position"
	"github.com/soniakeys/polaralign/internal/sim"
	"github.com/soniakeys/polaralign/internal/topo"
	"github.com/soniakeys/polaralign/internal/tracker"
)

const scale = 1.5 // arc seconds per pixel

var (
	center = r2.Vec{X: 2000, Y: 1500}
	night  = time.Date(2025, 8, 14, 21, 45, 0, 0, time.UTC)
	north  = topo.Observer{
		Lat: unit.AngleFromDeg(47.3),
		Lon: unit.AngleFromDeg(8.5),
	}
	south = topo.Observer{
		Lat: unit.AngleFromDeg(-31.3),
		Lon: unit.AngleFromDeg(149.1),
	}
)

type scenario struct {
	m     *sim.Mount
	est   *axiserr.Estimator
	frame position.Sample
}

func newScenario(t *testing.T, obs topo.Observer, azErr, altErr float64) *scenario {
	m := &sim.Mount{
		Observer: obs,
		AzError:  unit.AngleFromDeg(azErr),
		AltError: unit.AngleFromDeg(altErr),
		Time:     night,
	}
	az := unit.AngleFromDeg(170)
	if !obs.Northern() {
		az = unit.AngleFromDeg(10)
	}
	s := m.Samples(az, unit.AngleFromDeg(50), unit.AngleFromDeg(20), 3)
	est, err := axiserr.Estimate(s[0], s[1], s[2], obs, nil,
		axiserr.DefaultOptions())
	require.NoError(t, err)
	return &scenario{m: m, est: est, frame: s[2]}
}

// solve returns the plate solve of the reference frame after removing
// fraction f of the error.
func (sc *scenario) solve(f float64, id string) position.Sample {
	v := sc.m.Corrected(sc.est.Positions[2].Vector, f)
	return sc.m.Solve(v, sc.frame.PositionAngle, id)
}

func TestProjectShift(t *testing.T) {
	c := topo.NewEquatorial(280.5, 62.1, topo.J2000)
	pa := unit.AngleFromDeg(33)
	assert.Equal(t, center, tracker.Project(c, c, pa, center, scale))
	for _, p := range []r2.Vec{
		{X: 0, Y: 0},
		{X: 4000, Y: 3000},
		{X: 2100, Y: 1400},
		center,
	} {
		s := tracker.Shift(p, c, pa, center, scale)
		assert.Equal(t, c.Epoch, s.Epoch)
		got := tracker.Project(s, c, pa, center, scale)
		if diff := cmp.Diff(p, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("round trip (-want +got):\n%s", diff)
		}
	}
	// one pixel is scale arc seconds
	s := tracker.Shift(r2.Vec{X: center.X + 1, Y: center.Y}, c, pa, center,
		scale)
	assert.InDelta(t, scale, c.Distance(s).Sec(), 1e-6)
}

func TestBegin(t *testing.T) {
	sc := newScenario(t, north, .4, -.3)
	tr, err := tracker.Begin(sc.est, tracker.Config{
		PixelScale: scale,
		Center:     center,
	})
	require.NoError(t, err)
	assertNear(t, sc.est.Initial(), tr.Current(), .1)
	d := tr.Detail()
	if diff := cmp.Diff(center, d.Star, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("star (-want +got):\n%s", diff)
	}
	// destination is the error's length from the origin
	l := r2.Norm(r2.Sub(d.Initial.Total, d.Initial.Origin))
	assert.Greater(t, l, 100.)

	_, err = tracker.Begin(sc.est, tracker.Config{Center: center})
	assert.Error(t, err)
}

func assertNear(t *testing.T, want, got axiserr.AxisError, tolSec float64) {
	t.Helper()
	assert.InDelta(t, want.Altitude.Sec(), got.Altitude.Sec(), tolSec,
		"altitude")
	assert.InDelta(t, want.Azimuth.Sec(), got.Azimuth.Sec(), tolSec,
		"azimuth")
}

func TestConvergence(t *testing.T) {
	for _, tc := range []struct {
		obs           topo.Observer
		azErr, altErr float64
	}{
		{north, .5, .3},
		{north, -.2, .6},
		{south, .4, -.5},
		{north, .5, 0},
	} {
		t.Run(fmt.Sprint(tc), func(t *testing.T) {
			sc := newScenario(t, tc.obs, tc.azErr, tc.altErr)
			var updates []axiserr.AxisError
			tr, err := tracker.Begin(sc.est, tracker.Config{
				PixelScale: scale,
				Center:     center,
				OnUpdate: func(e axiserr.AxisError) {
					updates = append(updates, e)
				},
			})
			require.NoError(t, err)
			init := sc.est.Initial()
			prev := tr.Current()
			for k := 1; k <= 10; k++ {
				f := float64(k) / 10
				got, err := tr.Update(context.Background(),
					sc.solve(f, fmt.Sprintf("live-%d", k)))
				require.NoError(t, err)
				want := init.Scale(1-f, 1-f)
				// fraction of a percent from linearization in the image
				tol := .01*init.Total.Sec() + 1
				assertNear(t, want, got, tol)
				assert.LessOrEqual(t, got.Total.Sec(), prev.Total.Sec()+1e-6,
					"step %d", k)
				prev = got
			}
			assert.Less(t, prev.Total.Sec(), 2.)
			// Begin and each update
			assert.Len(t, updates, 11)
		})
	}
}

func TestOvershoot(t *testing.T) {
	sc := newScenario(t, north, .3, .4)
	tr, err := tracker.Begin(sc.est, tracker.Config{
		PixelScale: scale,
		Center:     center,
	})
	require.NoError(t, err)
	got, err := tr.Update(context.Background(), sc.solve(1.5, "over"))
	require.NoError(t, err)
	want := sc.est.Initial().Scale(-.5, -.5)
	assertNear(t, want, got, .01*want.Total.Sec()+1)
	assert.Equal(t, sc.est.Initial().AltitudeHint(true) == "move down",
		got.AltitudeHint(true) == "move up")
}

func TestSolveFailed(t *testing.T) {
	sc := newScenario(t, north, .3, .4)
	tr, err := tracker.Begin(sc.est, tracker.Config{
		PixelScale: scale,
		Center:     center,
	})
	require.NoError(t, err)
	held, err := tr.Update(context.Background(), sc.solve(.5, "half"))
	require.NoError(t, err)
	bad := sc.solve(.8, "bad")
	bad.Success = false
	got, err := tr.Update(context.Background(), bad)
	assert.ErrorIs(t, err, tracker.ErrSolveFailed)
	assert.Equal(t, held, got)
	assert.Equal(t, held, tr.Current())
}

func TestUpdateStar(t *testing.T) {
	sc := newScenario(t, north, .5, .3)
	star := tracker.Shift(r2.Vec{X: 2150, Y: 1420}, sc.frame.Coord,
		sc.frame.PositionAngle, center, scale)
	tr, err := tracker.Begin(sc.est, tracker.Config{
		Star:       &star,
		PixelScale: scale,
		Center:     center,
	})
	require.NoError(t, err)
	_, err = tr.Update(context.Background(), sc.solve(.4, "solved"))
	require.NoError(t, err)

	// the star as seen in an image after 70% of the correction
	later := sc.solve(.7, "")
	p := tracker.Project(star, later.Coord, later.PositionAngle, center,
		scale)
	got := tr.UpdateStar(p)
	want := sc.est.Initial().Scale(.3, .3)
	assertNear(t, want, got, .02*sc.est.Initial().Total.Sec()+1)
	assert.Equal(t, p, tr.Detail().Star)
}

type starField struct {
	calls atomic.Int32
	stars map[string][]r2.Vec
	err   error
}

func (f *starField) Detect(ctx context.Context, id string) ([]r2.Vec, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.stars[id], nil
}

func TestReacquire(t *testing.T) {
	sc := newScenario(t, north, .5, .3)
	field := &starField{stars: map[string][]r2.Vec{}}
	tr, err := tracker.Begin(sc.est, tracker.Config{
		PixelScale: scale,
		Center:     center,
		Detector:   field,
	})
	require.NoError(t, err)

	s := sc.solve(.3, "img-1")
	expected := tracker.Project(sc.frame.Coord, s.Coord, s.PositionAngle,
		center, scale)
	// detected a little off the projection, with a distractor
	found := r2.Add(expected, r2.Vec{X: 2.5, Y: -1.5})
	field.stars["img-1"] = []r2.Vec{{X: 10, Y: 10}, found, {X: 3900, Y: 2900}}
	_, err = tr.Update(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, found, tr.Detail().Star)
	assert.Equal(t, int32(1), field.calls.Load())

	// no stars: keep the projection
	s = sc.solve(.6, "img-2")
	_, err = tr.Update(context.Background(), s)
	require.NoError(t, err)
	assert.NotEqual(t, found, tr.Detail().Star)

	// selecting at an arbitrary pixel
	field.stars["img-3"] = []r2.Vec{{X: 100, Y: 200}, {X: 3000, Y: 2500}}
	_, err = tr.Update(context.Background(), sc.solve(.7, "img-3"))
	require.NoError(t, err)
	require.NoError(t, tr.SelectStar(context.Background(), "img-3",
		r2.Vec{X: 2900, Y: 2400}))
	assert.Equal(t, r2.Vec{X: 3000, Y: 2500}, tr.Detail().Star)
	assert.Equal(t, int32(3), field.calls.Load())
}

func TestReacquireCanceled(t *testing.T) {
	sc := newScenario(t, north, .5, .3)
	field := &starField{err: context.Canceled}
	tr, err := tracker.Begin(sc.est, tracker.Config{
		PixelScale: scale,
		Center:     center,
		Detector:   field,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Update(ctx, sc.solve(.3, "img"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectStarNoDetector(t *testing.T) {
	sc := newScenario(t, north, .5, .3)
	tr, err := tracker.Begin(sc.est, tracker.Config{
		PixelScale: scale,
		Center:     center,
	})
	require.NoError(t, err)
	err = tr.SelectStar(context.Background(), "x", center)
	assert.ErrorIs(t, err, tracker.ErrNoDetector)
}

// blockingDetector holds every detection until released.
type blockingDetector struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingDetector) Detect(ctx context.Context, id string) ([]r2.Vec, error) {
	b.calls.Add(1)
	<-b.release
	return []r2.Vec{{X: 1, Y: 2}}, nil
}

func TestDetectionCacheCancel(t *testing.T) {
	d := &blockingDetector{release: make(chan struct{})}
	c := tracker.NewDetectionCache(d)

	// the first caller starts the detection, then gives up
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Stars(ctx, "img")
		first <- err
	}()
	require.Eventually(t, func() bool { return d.calls.Load() == 1 },
		time.Second, time.Millisecond)

	second := make(chan []r2.Vec, 1)
	go func() {
		s, err := c.Stars(context.Background(), "img")
		assert.NoError(t, err)
		second <- s
	}()
	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(d.release)
	select {
	case s := <-second:
		assert.Equal(t, []r2.Vec{{X: 1, Y: 2}}, s)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not get the detection")
	}
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestDetectionCache(t *testing.T) {
	d := &blockingDetector{release: make(chan struct{})}
	c := tracker.NewDetectionCache(d)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Stars(context.Background(), "same")
			assert.NoError(t, err)
			assert.Len(t, s, 1)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(d.release)
	wg.Wait()
	assert.Equal(t, int32(1), d.calls.Load())

	// cached
	p, err := c.Closest(context.Background(), "same", r2.Vec{})
	require.NoError(t, err)
	assert.Equal(t, r2.Vec{X: 1, Y: 2}, p)
	assert.Equal(t, int32(1), d.calls.Load())

	// a new image detects again
	_, err = c.Stars(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestClosestEmpty(t *testing.T) {
	c := tracker.NewDetectionCache(&starField{})
	p := r2.Vec{X: 5, Y: 6}
	got, err := c.Closest(context.Background(), "none", p)
	assert.True(t, errors.Is(err, tracker.ErrNoStars))
	assert.Equal(t, p, got)
}
