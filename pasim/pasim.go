/*
Command pasim writes run files for polaralign from a simulated mount.

The simulated mount has a polar axis displaced from the pole by a chosen
altitude and azimuth error.  Pasim rotates it about that axis between three
exposures, writes the plate solves an ideal solver would report, and
optionally a live sequence of solves taken while the error is removed in
equal steps, with star detections for each live image.

Usage

   pasim [options] [output file]
   pasim -v

Without an output file the run file is written to stdout.  Options:

   -lat, -lon, -elev    observer, degrees and meters
   -az, -alt            axis error, arc minutes
   -startaz, -startalt  first pointing, degrees
   -step                rotation between exposures, degrees
   -time                time of the exposures, RFC 3339, default now
   -noise               plate solve noise, arc seconds
   -seed                random seed for noise and field stars
   -pressure, -temp, -humidity
                        weather.  With -pressure > 0 the solves see
                        refraction and the weather is recorded.
   -live                number of live solves
   -scale               pixel scale of live images, arc seconds
   -stars               field stars detected per live image
   -runs                number of runs, ten minutes apart

-------------
Public domain.
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soniakeys/polaralign/internal/refract"
	"github.com/soniakeys/polaralign/internal/runfile"
	"github.com/soniakeys/polaralign/internal/sim"
	"github.com/soniakeys/polaralign/internal/topo"
)

const versionString = "pasim version 0.2"
const copyrightString = "Public domain."

func main() {
	defer exit.Handler()
	lat := flag.Float64("lat", 47.3, "")
	lon := flag.Float64("lon", 8.5, "")
	elev := flag.Float64("elev", 0, "")
	azErr := flag.Float64("az", 20, "")
	altErr := flag.Float64("alt", 10, "")
	startAz := flag.Float64("startaz", -1, "")
	startAlt := flag.Float64("startalt", 50, "")
	step := flag.Float64("step", 20, "")
	at := flag.String("time", "", "")
	noise := flag.Float64("noise", 0, "")
	seed := flag.Uint64("seed", 1, "")
	pressure := flag.Float64("pressure", 0, "")
	temp := flag.Float64("temp", refract.StandardTemperature, "")
	humidity := flag.Float64("humidity", refract.StandardHumidity, "")
	live := flag.Int("live", 0, "")
	scale := flag.Float64("scale", 1.5, "")
	stars := flag.Int("stars", 20, "")
	runs := flag.Int("runs", 1, "")
	vers := flag.Bool("v", false, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
   pasim [options] [output file]
   pasim -v

For full documentation:
   go doc github.com/soniakeys/polaralign/pasim
`)
	}
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *lat == 0 || *lat < -90 || *lat > 90 {
		exit.Log("latitude must be within ±90 and off the equator")
	}

	t := time.Now().UTC().Truncate(time.Second)
	if *at != "" {
		var err error
		if t, err = time.Parse(time.RFC3339, *at); err != nil {
			exit.Log(err)
		}
	}
	m := &sim.Mount{
		Observer: topo.Observer{
			Lat:       unit.AngleFromDeg(*lat),
			Lon:       unit.AngleFromDeg(*lon),
			Elevation: *elev,
		},
		AzError:  unit.AngleFromMin(*azErr),
		AltError: unit.AngleFromMin(*altErr),
		Noise:    unit.AngleFromSec(*noise),
		Rand:     sim.NewRand(*seed),
	}
	cfg := sim.RunConfig{
		StartAz:    unit.AngleFromDeg(*startAz),
		StartAlt:   unit.AngleFromDeg(*startAlt),
		Step:       unit.AngleFromDeg(*step),
		LiveSteps:  *live,
		PixelScale: *scale,
		Center:     r2.Vec{X: 2000, Y: 1500},
		FieldStars: *stars,
	}
	// default start just off the meridian, facing away from the pole
	if *startAz < 0 {
		cfg.StartAz = unit.AngleFromDeg(170)
		if *lat < 0 {
			cfg.StartAz = unit.AngleFromDeg(10)
		}
	}
	if *live > 0 {
		cfg.Fraction = 1 / float64(*live)
	}
	if *pressure > 0 {
		w := runfile.Weather{
			Connected:   true,
			Pressure:    *pressure,
			Temperature: *temp,
			Humidity:    *humidity,
		}
		rp := refract.FromSensor(refract.Reading{
			Connected:   true,
			Pressure:    w.Pressure,
			Temperature: w.Temperature,
			Humidity:    w.Humidity,
		})
		m.Refraction = &rp
		cfg.Weather = &w
	}

	var out io.Writer = os.Stdout
	if flag.NArg() == 1 {
		f, err := os.Create(flag.Arg(0))
		if err != nil {
			exit.Log(err)
		}
		defer f.Close()
		out = f
	}
	rs := make([]runfile.Run, *runs)
	for i := range rs {
		m.Time = t.Add(time.Duration(i) * 10 * time.Minute)
		rs[i] = m.Run(cfg)
	}
	if err := runfile.Write(out, rs); err != nil {
		exit.Log(err)
	}
}
