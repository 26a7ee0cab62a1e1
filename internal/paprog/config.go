// Public domain.

package paprog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/unit"
)

const configFile = "polaralign.config"

type options struct {
	headings    bool
	refractPole bool
	live        bool
	tolerance   unit.Angle // live sequence stops within tolerance
	minSpread   unit.Angle
	distance    unit.Angle // RA distance expected between samples
	wavelength  float64    // micron, 0 for the default
	logLevel    slog.Level
}

func defaultOptions() *options {
	return &options{
		headings:  true,
		live:      true,
		tolerance: unit.AngleFromMin(1),
		minSpread: unit.AngleFromDeg(5),
		distance:  unit.AngleFromDeg(10),
		logLevel:  slog.LevelWarn,
	}
}

// readConfig reads the config file named on the command line, or
// polaralign.config in the current directory if it exists.
func readConfig(cl *commandLine) *options {
	opt := defaultOptions()
	fn := cl.dc
	if fn == "" {
		fn = configFile
	}
	f, err := os.Open(fn)
	if err != nil {
		if cl.dc == "" {
			return opt
		}
		exit.Log(err)
	}
	defer f.Close()
	if err := parseConfig(f, opt); err != nil {
		exit.Log(err)
	}
	return opt
}

var rxSetting = regexp.MustCompile(`^[ \t]*(.*?)[ \t]*=[ \t]*(.+)$`)

func parseConfig(r io.Reader, opt *options) error {
	for lr := bufio.NewReader(r); ; {
		l, isPre, err := lr.ReadLine()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		case isPre:
			return fmt.Errorf("unexpected long line in config file")
		case len(l) == 0:
			continue
		case l[0] == '#':
			continue
		}
		ls := strings.TrimSpace(string(l))
		switch ls {
		case "headings":
			opt.headings = true
			continue
		case "noheadings":
			opt.headings = false
			continue
		case "refractpole":
			opt.refractPole = true
			continue
		case "truepole":
			opt.refractPole = false
			continue
		case "live":
			opt.live = true
			continue
		case "nolive":
			opt.live = false
			continue
		}
		ss := rxSetting.FindStringSubmatch(ls)
		if len(ss) != 3 {
			return fmt.Errorf("unrecognized line in config file: %s", ls)
		}
		if err := opt.set(ss[1], ss[2]); err != nil {
			return fmt.Errorf("%v\nconfig file line: %s", err, ls)
		}
	}
}

// set assigns a keyword = value setting.
func (opt *options) set(key, val string) error {
	if key == "loglevel" {
		return opt.logLevel.UnmarshalText([]byte(val))
	}
	x, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return err
	}
	switch key {
	case "tolerance":
		if !(x > 0) {
			return fmt.Errorf("tolerance must be positive")
		}
		opt.tolerance = unit.AngleFromMin(x)
	case "minspread":
		if x < 0 || x > 180 {
			return fmt.Errorf("minspread must be 0 to 180 degrees")
		}
		opt.minSpread = unit.AngleFromDeg(x)
	case "distance":
		if x < 0 || x > 180 {
			return fmt.Errorf("distance must be 0 to 180 degrees")
		}
		opt.distance = unit.AngleFromDeg(x)
	case "wavelength":
		if !(x > 0) {
			return fmt.Errorf("wavelength must be positive")
		}
		opt.wavelength = x
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
