// Public domain.

package sphvec_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/polaralign/internal/sphvec"
)

func ExampleFromHorizontal() {
	for _, d := range []struct{ az, alt float64 }{
		{0, 0},
		{90, 0},
		{270, 0},
		{0, 90},
	} {
		v := sphvec.FromHorizontal(unit.AngleFromDeg(d.az),
			unit.AngleFromDeg(d.alt))
		fmt.Printf("az %3.0f alt %2.0f  %6.3f %6.3f %6.3f\n",
			d.az, d.alt, v.X+0, v.Y+0, v.Z+0)
	}
	// Output:
	// az   0 alt  0   1.000  0.000  0.000
	// az  90 alt  0   0.000 -1.000  0.000
	// az 270 alt  0  -0.000  1.000  0.000
	// az   0 alt 90   0.000  0.000  1.000
}

func ExampleRotate() {
	// a positive rotation about the zenith turns north to west
	v := sphvec.Rotate(&sphvec.North, &sphvec.Zenith, math.Pi/2)
	az, alt := sphvec.Horizontal(&v)
	fmt.Printf("az %.1f alt %.1f\n", az.Deg(), alt.Deg())
	// Output:
	// az 270.0 alt 0.0
}

func TestHorizontalRoundTrip(t *testing.T) {
	for az := -360.; az <= 720; az += 17.5 {
		for alt := -89.; alt <= 89; alt += 11 {
			v := sphvec.FromHorizontal(unit.AngleFromDeg(az),
				unit.AngleFromDeg(alt))
			if l := sphvec.Len(&v); math.Abs(l-1) > 1e-15 {
				t.Fatalf("az %g alt %g: length %g", az, alt, l)
			}
			gAz, gAlt := sphvec.Horizontal(&v)
			if gAz < 0 || gAz >= 2*math.Pi {
				t.Fatalf("az %g: result %g not normalized", az, gAz.Deg())
			}
			wantAz := unit.PMod(az, 360)
			dAz := math.Abs(gAz.Deg() - wantAz)
			if dAz > 180 {
				dAz = 360 - dAz
			}
			if dAz > 1e-9 || math.Abs(gAlt.Deg()-alt) > 1e-9 {
				t.Fatalf("az %g alt %g: round trip %.12f %.12f",
					az, alt, gAz.Deg(), gAlt.Deg())
			}
		}
	}
}

func TestHorizontalPoles(t *testing.T) {
	for _, tc := range []struct {
		v       coord.Cart
		wantAlt float64
	}{
		{coord.Cart{Z: 1}, 90},
		{coord.Cart{Z: -2}, -90},
		{coord.Cart{}, 90},
	} {
		az, alt := sphvec.Horizontal(&tc.v)
		if az != 0 || alt.Deg() != tc.wantAlt {
			t.Errorf("%+v: az %g alt %g", tc.v, az.Deg(), alt.Deg())
		}
	}
	// azimuth is ignored at the zenith
	v := sphvec.FromHorizontal(unit.AngleFromDeg(123), math.Pi/2)
	if diff := cmp.Diff(sphvec.Zenith, v,
		cmpopts.EquateApprox(0, 1e-15)); diff != "" {
		t.Errorf("zenith (-want +got):\n%s", diff)
	}
}

func TestRotateRoundTrip(t *testing.T) {
	axes := []coord.Cart{
		sphvec.Zenith,
		sphvec.North,
		sphvec.FromHorizontal(unit.AngleFromDeg(33), unit.AngleFromDeg(49)),
		sphvec.FromHorizontal(unit.AngleFromDeg(181), unit.AngleFromDeg(-27)),
	}
	v := sphvec.FromHorizontal(unit.AngleFromDeg(250), unit.AngleFromDeg(12))
	for _, k := range axes {
		for θ := -400.; θ <= 400; θ += 37 {
			a := unit.AngleFromDeg(θ)
			r := sphvec.Rotate(&v, &k, a)
			if d := r.Dot(&k) - v.Dot(&k); math.Abs(d) > 1e-12 {
				t.Fatalf("axis %+v θ %g: axial component changed by %g",
					k, θ, d)
			}
			back := sphvec.Rotate(&r, &k, -a)
			if diff := cmp.Diff(v, back,
				cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Fatalf("axis %+v θ %g (-want +got):\n%s", k, θ, diff)
			}
		}
	}
}

func TestRotateAzimuth(t *testing.T) {
	// negated offset about the zenith increases azimuth
	v := sphvec.FromHorizontal(unit.AngleFromDeg(10), unit.AngleFromDeg(30))
	r := sphvec.Rotate(&v, &sphvec.Zenith, unit.AngleFromDeg(-5))
	az, alt := sphvec.Horizontal(&r)
	if math.Abs(az.Deg()-15) > 1e-12 || math.Abs(alt.Deg()-30) > 1e-12 {
		t.Fatalf("got az %g alt %g", az.Deg(), alt.Deg())
	}
}

func TestPlaneNormal(t *testing.T) {
	// three points on a small circle about a known axis
	axis := sphvec.FromHorizontal(unit.AngleFromDeg(2), unit.AngleFromDeg(41))
	v0 := sphvec.FromHorizontal(unit.AngleFromDeg(20), unit.AngleFromDeg(60))
	var p [3]coord.Cart
	for i := range p {
		p[i] = sphvec.Rotate(&v0, &axis, unit.AngleFromDeg(float64(i)*25))
	}
	n, l := sphvec.PlaneNormal(&p[0], &p[1], &p[2])
	if l <= 0 {
		t.Fatal("zero length normal")
	}
	if n.Dot(&axis) < 0 {
		n = sphvec.Neg(&n)
	}
	if s := sphvec.Separation(&n, &axis); s.Sec() > 1e-6 {
		t.Fatalf("normal off axis by %g″", s.Sec())
	}
	// reversed order flips the normal
	r, _ := sphvec.PlaneNormal(&p[2], &p[1], &p[0])
	if r.Dot(&n) > -1+1e-12 {
		t.Fatalf("reversed normal %+v not opposite %+v", r, n)
	}
}

func TestPlaneNormalCoincident(t *testing.T) {
	a := sphvec.FromHorizontal(1, .5)
	b := sphvec.FromHorizontal(2, .5)
	n, l := sphvec.PlaneNormal(&a, &b, &b)
	if l != 0 || n != (coord.Cart{}) {
		t.Fatalf("got %+v, %g", n, l)
	}
}

func TestProject(t *testing.T) {
	a := coord.Cart{X: 3, Y: 4}
	b := coord.Cart{X: 2}
	if p := sphvec.Project(&a, &b); p != 3 {
		t.Fatal("got", p)
	}
	u := sphvec.Unit(&a)
	if math.Abs(sphvec.Len(&u)-1) > 1e-15 {
		t.Fatal("unit length", sphvec.Len(&u))
	}
	d := sphvec.Sub(&a, &b)
	if d != (coord.Cart{X: 1, Y: 4}) {
		t.Fatal("sub", d)
	}
}
