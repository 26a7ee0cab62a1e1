// Public domain.

// Package sphvec represents sky directions as vectors in a local horizon
// frame.
//
// The frame is right handed: x points to the north point of the horizon,
// y to the west point and z to the zenith.  A direction with azimuth az
// (north 0, east 90°) and altitude alt has spherical angles θ = -az and
// φ = 90° - alt, and
//
//   x = cos θ sin φ
//   y = sin θ sin φ
//   z = cos φ
//
// Rotations are done on vectors rather than on azimuth and altitude
// because the alignment algorithms work near the pole, where azimuth wraps
// and is singular.
package sphvec

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// Zenith, North and West are the frame axes.
var (
	North  = coord.Cart{X: 1}
	West   = coord.Cart{Y: 1}
	Zenith = coord.Cart{Z: 1}
)

// FromHorizontal returns the unit vector for azimuth az and altitude alt.
//
// At altitude ±90° azimuth is treated as 0.
func FromHorizontal(az, alt unit.Angle) coord.Cart {
	if math.Abs(alt.Rad()) >= math.Pi/2 {
		az = 0
	}
	sθ, cθ := math.Sincos(-az.Rad())
	sφ, cφ := math.Sincos(math.Pi/2 - alt.Rad())
	return coord.Cart{
		X: cθ * sφ,
		Y: sθ * sφ,
		Z: cφ,
	}
}

// Horizontal is the inverse of FromHorizontal.
//
// V need not be unit length.  Azimuth is returned in the range [0, 2π).
// When x = y = 0 azimuth is 0 and altitude is ±90° by the sign of z.
func Horizontal(v *coord.Cart) (az, alt unit.Angle) {
	if v.X == 0 && v.Y == 0 {
		if v.Z < 0 {
			return 0, -math.Pi / 2
		}
		return 0, math.Pi / 2
	}
	az = unit.Angle(unit.PMod(-math.Atan2(v.Y, v.X), 2*math.Pi))
	alt = unit.Angle(math.Atan2(v.Z, math.Hypot(v.X, v.Y)))
	return
}

// Len returns the length of v.
func Len(v *coord.Cart) float64 {
	return math.Sqrt(v.Square())
}

// Unit returns v scaled to unit length.  The zero vector is returned
// unchanged.
func Unit(v *coord.Cart) coord.Cart {
	l := Len(v)
	if l == 0 {
		return coord.Cart{}
	}
	var u coord.Cart
	u.MulScalar(v, 1/l)
	return u
}

// Neg returns -v.
func Neg(v *coord.Cart) coord.Cart {
	return coord.Cart{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Sub returns a - b.
func Sub(a, b *coord.Cart) coord.Cart {
	var d coord.Cart
	d.Sub(a, b)
	return d
}

// Cross returns a × b.
func Cross(a, b *coord.Cart) coord.Cart {
	var c coord.Cart
	c.Cross(a, b)
	return c
}

// Dot returns a · b.
func Dot(a, b *coord.Cart) float64 {
	return a.Dot(b)
}

// Project returns the scalar projection of a onto b, the length of the
// component of a along b.
func Project(a, b *coord.Cart) float64 {
	return a.Dot(b) / Len(b)
}

// Separation returns the angle between a and b.
func Separation(a, b *coord.Cart) unit.Angle {
	c := Cross(a, b)
	return unit.Angle(math.Atan2(Len(&c), a.Dot(b)))
}

// Rotate rotates v about axis k by angle θ using Rodrigues' formula,
//
//   v cos θ + (k × v) sin θ + k (k · v)(1 - cos θ)
//
// K must be unit length.  The rotation is right handed about k.  About
// Zenith a positive angle turns north toward west and so decreases
// azimuth.
func Rotate(v, k *coord.Cart, θ unit.Angle) coord.Cart {
	s, c := math.Sincos(θ.Rad())
	var r, kv, kk coord.Cart
	r.MulScalar(v, c)
	kv.Cross(k, v)
	kv.MulScalar(&kv, s)
	kk.MulScalar(k, k.Dot(v)*(1-c))
	r.Add(&r, &kv)
	r.Add(&r, &kk)
	return r
}

// PlaneNormal returns the unit normal of the plane through a, b and c,
// computed as (b - a) × (c - b).
//
// The length of the cross product before normalization is returned as well.
// It is zero when two of the points coincide, in which case n is the zero
// vector.  Callers should treat a length near zero as insufficient spread.
func PlaneNormal(a, b, c *coord.Cart) (n coord.Cart, length float64) {
	var ab, bc coord.Cart
	ab.Sub(b, a)
	bc.Sub(c, b)
	n.Cross(&ab, &bc)
	if length = Len(&n); length == 0 {
		return coord.Cart{}, 0
	}
	n.MulScalar(&n, 1/length)
	return n, length
}
