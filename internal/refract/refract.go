// Public domain.

// Package refract models atmospheric refraction at optical and radio
// wavelengths.
//
// Refraction raises a body's apparent altitude above its true (airless)
// altitude.  The default model follows the refraction constants of the
// IAU SOFA library: two constants A and B computed from pressure,
// temperature, humidity and wavelength, applied to the zenith distance z as
//
//   Δz = (A + B tan²z) tan z / (1 + (A + 3B tan²z) / cos²z)
//
// An alternate model, selected with Params.Model, scales the meeus
// Saemundsson formula by pressure and temperature.
//
// A nil *Params is valid everywhere and means no refraction.
package refract

import (
	"math"

	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/unit"
)

// Standard atmosphere values substituted for missing or implausible
// readings.
const (
	StandardPressure    = 1013.25 // hPa
	StandardTemperature = 15.     // °C
	StandardHumidity    = 0.      // percent
	StandardWavelength  = .55     // micron
)

// Model selects the refraction formula.
type Model int

const (
	ModelConstants   Model = iota // SOFA style A, B constants
	ModelSaemundsson              // meeus Saemundsson, scaled by P and T
)

func (m Model) String() string {
	switch m {
	case ModelConstants:
		return "constants"
	case ModelSaemundsson:
		return "saemundsson"
	}
	return "unknown"
}

// Params holds the atmospheric conditions of an observation.
type Params struct {
	PressureHPa  float64
	TemperatureC float64
	Humidity     float64 // relative humidity, percent 0-100
	Wavelength   float64 // micron
	Model        Model
}

// Standard returns the standard atmosphere.
func Standard() Params {
	return Params{
		PressureHPa:  StandardPressure,
		TemperatureC: StandardTemperature,
		Humidity:     StandardHumidity,
		Wavelength:   StandardWavelength,
	}
}

// Reading is a weather sensor report.
type Reading struct {
	Connected   bool
	Pressure    float64 // hPa
	Temperature float64 // °C
	Humidity    float64 // percent
	Wavelength  float64 // micron, 0 for the default
}

// FromSensor builds Params from a sensor reading.
//
// A reading from a disconnected sensor gives Standard().  Otherwise each
// value that is NaN or implausible is replaced by its standard value:
// pressure below 500 hPa, temperature outside ±100 °C, humidity outside
// 0-100 percent.  The substitution is silent.
func FromSensor(r Reading) Params {
	p := Standard()
	if !r.Connected {
		return p
	}
	if !math.IsNaN(r.Pressure) && r.Pressure >= 500 {
		p.PressureHPa = r.Pressure
	}
	if !math.IsNaN(r.Temperature) && math.Abs(r.Temperature) <= 100 {
		p.TemperatureC = r.Temperature
	}
	if !math.IsNaN(r.Humidity) && r.Humidity >= 0 && r.Humidity <= 100 {
		p.Humidity = r.Humidity
	}
	if r.Wavelength > 0 {
		p.Wavelength = r.Wavelength
	}
	return p
}

// Constants returns the refraction constants A and B, in radians.
//
// Inputs are clamped to the ranges where the model is meaningful.
// Wavelengths above 100 micron use the radio formula.
func (p *Params) Constants() (a, b float64) {
	if p == nil {
		return 0, 0
	}
	t := clamp(p.TemperatureC, -150, 200)
	pr := clamp(p.PressureHPa, 0, 10000)
	rh := clamp(p.Humidity/100, 0, 1)
	wl := clamp(p.Wavelength, .1, 1e6)
	// water vapour pressure
	var pw float64
	if pr > 0 {
		ps := math.Pow(10, (.7859+.03477*t)/(1+.00412*t)) *
			(1 + pr*(4.5e-6+6e-10*t*t))
		pw = rh * ps / (1 - (1-rh)*ps/pr)
	}
	tk := t + 273.15
	var γ float64
	β := 4.4474e-6 * tk
	if wl <= 100 {
		wlsq := wl * wl
		γ = ((77.53484e-6+(4.39108e-7+3.666e-9/wlsq)/wlsq)*pr -
			11.2684e-6*pw) / tk
	} else {
		γ = (77.6890e-6*pr - (6.3938e-6-.375463/tk)*pw) / tk
		β -= .0074 * pw * β
	}
	return γ * (1 - β), -γ * (β - γ/2)
}

// Apparent returns the apparent altitude for true altitude h.
func (p *Params) Apparent(h unit.Angle) unit.Angle {
	if p == nil {
		return h
	}
	return h + p.shift(h)
}

// True returns the true altitude for apparent altitude h0.
//
// It inverts Apparent by fixed point iteration.  The shift varies slowly
// with altitude so few iterations are needed.
func (p *Params) True(h0 unit.Angle) unit.Angle {
	if p == nil {
		return h0
	}
	h := h0 - p.shift(h0)
	for i := 0; i < 20; i++ {
		next := h0 - p.shift(h)
		if math.Abs((next - h).Rad()) < 1e-14 {
			return next
		}
		h = next
	}
	return h
}

// Saemundsson returns the refraction for true altitude h by the
// Saemundsson formula, scaled for pressure and temperature.
func (p *Params) Saemundsson(h unit.Angle) unit.Angle {
	if p == nil {
		return 0
	}
	// the formula diverges well below the horizon
	if h < unit.AngleFromDeg(-2) {
		h = unit.AngleFromDeg(-2)
	}
	f := p.PressureHPa / 1010 * 283 / (273 + p.TemperatureC)
	return unit.Angle(refraction.Saemundsson(h).Rad() * f)
}

// shift returns the increase in altitude due to refraction at true
// altitude h.
func (p *Params) shift(h unit.Angle) unit.Angle {
	if p.Model == ModelSaemundsson {
		return p.Saemundsson(h)
	}
	a, b := p.Constants()
	sh, ch := math.Sincos(h.Rad())
	// tan z = r / zc, limited near and below the horizon
	r := math.Max(ch, 1e-6)
	zc := math.Max(sh, .05)
	tz := r / zc
	w := b * tz * tz
	return unit.Angle((a + w) * tz / (1 + (a+3*w)/(zc*zc)))
}

func clamp(x, lo, hi float64) float64 {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}
