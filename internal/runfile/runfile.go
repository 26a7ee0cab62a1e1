// Public domain.

// Package runfile reads and writes polar alignment run descriptions.
//
// A run file is a stream of YAML documents, one per alignment run.  A run
// gives the observer, optionally the weather, the three plate solves of
// the alignment and optionally the plate solves and star detections of a
// live tracking sequence:
//
//   id: 6f1c...
//   observer: {latitude: 49.5, longitude: 8.4, elevation: 110}
//   weather: {connected: true, pressure: 1005, temperature: 7, humidity: 80}
//   samples:
//     - image: a1
//       ra: 283.1
//       dec: 12.7
//       pa: 0
//       time: 2025-08-14T21:45:00Z
//     - ...
//   live:
//     pixelscale: 1.5
//     center: [2000, 1500]
//     solves:
//       - image: l1
//         ...
//     stars:
//       l1: [[2010.5, 1490.2], [310, 2200]]
//
// Angles are in degrees, right ascension included.
package runfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/polaralign/internal/position"
	"github.com/soniakeys/polaralign/internal/refract"
	"github.com/soniakeys/polaralign/internal/topo"
)

// Run is one alignment run.
type Run struct {
	ID       string   `yaml:"id"`
	Observer Observer `yaml:"observer"`
	Weather  *Weather `yaml:"weather,omitempty"`
	Samples  []Solve  `yaml:"samples"`
	Live     *Live    `yaml:"live,omitempty"`
}

// Observer is the site, in degrees and meters.
type Observer struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Elevation float64 `yaml:"elevation,omitempty"`
}

// Weather is a weather sensor reading.  Humidity is percent.
type Weather struct {
	Connected   bool    `yaml:"connected"`
	Pressure    float64 `yaml:"pressure"`
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
	Wavelength  float64 `yaml:"wavelength,omitempty"`
}

// Solve is a plate solve result.
type Solve struct {
	Image         string    `yaml:"image,omitempty"`
	RA            float64   `yaml:"ra"`
	Dec           float64   `yaml:"dec"`
	Epoch         string    `yaml:"epoch,omitempty"` // J2000 (default) or JNOW
	PositionAngle float64   `yaml:"pa"`
	Time          time.Time `yaml:"time"`
	Failed        bool      `yaml:"failed,omitempty"`
}

// Live describes a live tracking sequence.
type Live struct {
	PixelScale float64                 `yaml:"pixelscale"`
	Center     [2]float64              `yaml:"center"`
	Solves     []Solve                 `yaml:"solves,omitempty"`
	Stars      map[string][][2]float64 `yaml:"stars,omitempty"`
}

// ErrInvalid is wrapped by errors reporting an invalid run.
var ErrInvalid = errors.New("invalid run")

// Validate checks a run for values the alignment cannot use.
func (r *Run) Validate() error {
	switch {
	case len(r.Samples) != 3:
		return fmt.Errorf("%w %s: %d samples, need 3",
			ErrInvalid, r.ID, len(r.Samples))
	case r.Observer.Latitude < -90 || r.Observer.Latitude > 90:
		return fmt.Errorf("%w %s: latitude %g", ErrInvalid, r.ID,
			r.Observer.Latitude)
	case r.Observer.Latitude == 0:
		return fmt.Errorf("%w %s: observer on the equator", ErrInvalid, r.ID)
	case r.Live != nil && !(r.Live.PixelScale > 0):
		return fmt.Errorf("%w %s: pixel scale %g", ErrInvalid, r.ID,
			r.Live.PixelScale)
	}
	if err := checkSolves(r.Samples); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalid, r.ID, err)
	}
	if r.Live != nil {
		if err := checkSolves(r.Live.Solves); err != nil {
			return fmt.Errorf("%w %s: live: %v", ErrInvalid, r.ID, err)
		}
	}
	return nil
}

// checkSolves checks the epoch and time of each solve.
func checkSolves(ss []Solve) error {
	for i, s := range ss {
		if _, err := parseEpoch(s.Epoch); err != nil {
			return err
		}
		if s.Time.IsZero() {
			return fmt.Errorf("solve %d (%s): no time", i+1, s.Image)
		}
	}
	return nil
}

// TopoObserver returns the observer of the run.
func (r *Run) TopoObserver() topo.Observer {
	return topo.Observer{
		Lat:       unit.AngleFromDeg(r.Observer.Latitude),
		Lon:       unit.AngleFromDeg(r.Observer.Longitude),
		Elevation: r.Observer.Elevation,
	}
}

// Refraction returns the refraction parameters of the run, nil when the
// run has no weather.  A wavelength argument > 0 applies when the weather
// gives none.
func (r *Run) Refraction(wavelength float64) *refract.Params {
	if r.Weather == nil {
		return nil
	}
	w := r.Weather
	rd := refract.Reading{
		Connected:   w.Connected,
		Pressure:    w.Pressure,
		Temperature: w.Temperature,
		Humidity:    w.Humidity,
		Wavelength:  w.Wavelength,
	}
	if rd.Wavelength == 0 {
		rd.Wavelength = wavelength
	}
	p := refract.FromSensor(rd)
	if !w.Connected && wavelength > 0 {
		p.Wavelength = wavelength
	}
	return &p
}

// Sample converts s to a plate solve sample.
func (s Solve) Sample() position.Sample {
	e, _ := parseEpoch(s.Epoch)
	return position.Sample{
		Coord:         topo.NewEquatorial(s.RA, s.Dec, e),
		PositionAngle: unit.AngleFromDeg(s.PositionAngle),
		Success:       !s.Failed,
		ObservedAt:    s.Time,
		ImageID:       s.Image,
	}
}

// FromSample converts a plate solve sample for writing.
func FromSample(p position.Sample) Solve {
	s := Solve{
		Image:         p.ImageID,
		RA:            unit.Angle(p.Coord.RA.Rad()).Deg(),
		Dec:           p.Coord.Dec.Deg(),
		PositionAngle: p.PositionAngle.Deg(),
		Time:          p.ObservedAt.UTC(),
		Failed:        !p.Success,
	}
	if p.Coord.Epoch != topo.J2000 {
		s.Epoch = p.Coord.Epoch.String()
	}
	return s
}

func parseEpoch(s string) (topo.Epoch, error) {
	switch strings.ToUpper(s) {
	case "", "J2000":
		return topo.J2000, nil
	case "JNOW":
		return topo.JNow, nil
	}
	return 0, fmt.Errorf("unknown epoch %q", s)
}

// CenterVec returns the image center.
func (l *Live) CenterVec() r2.Vec {
	return r2.Vec{X: l.Center[0], Y: l.Center[1]}
}

// Detect returns the recorded star detections of an image.  With it
// a Live serves as a tracker.Detector.
func (l *Live) Detect(ctx context.Context, imageID string) ([]r2.Vec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps := l.Stars[imageID]
	stars := make([]r2.Vec, len(ps))
	for i, p := range ps {
		stars[i] = r2.Vec{X: p[0], Y: p[1]}
	}
	return stars, nil
}

// Decoder reads runs from a stream.
type Decoder struct {
	dec *yaml.Decoder
	n   int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: yaml.NewDecoder(r)}
}

// Next returns the next run, io.EOF at the end of the stream.
//
// A run without an id is given a random one.
func (d *Decoder) Next() (*Run, error) {
	var r Run
	if err := d.dec.Decode(&r); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("run %d: %w", d.n+1, err)
	}
	d.n++
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return &r, nil
}

// Read reads all runs from r.
func Read(r io.Reader) ([]Run, error) {
	var runs []Run
	for d := NewDecoder(r); ; {
		run, err := d.Next()
		if err == io.EOF {
			return runs, nil
		}
		if err != nil {
			return runs, err
		}
		runs = append(runs, *run)
	}
}

// ReadFile reads all runs from the named file.
func ReadFile(fn string) ([]Run, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Write writes runs as a stream of YAML documents.
func Write(w io.Writer, runs []Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for i := range runs {
		if err := enc.Encode(&runs[i]); err != nil {
			return err
		}
	}
	return enc.Close()
}
