// Public domain.

package axiserr

import (
	"fmt"

	"github.com/soniakeys/polaralign/internal/position"
)

// assess checks the sample geometry against the thresholds of opt,
// setting LowConfidence and Warnings.  Nothing here is an error.
func (e *Estimator) assess(opt Options) {
	if opt.MinNormalLength > 0 && e.NormalLength < opt.MinNormalLength {
		e.warn(fmt.Sprintf("plane normal length %.3g below %.3g",
			e.NormalLength, opt.MinNormalLength))
	}
	if min := opt.MinPositionAngleSpread; min > 0 {
		if e.Rotation < min {
			e.warn(fmt.Sprintf("rotation about axis %.2f° below %.2f°",
				e.Rotation.Deg(), min.Deg()))
		}
		// position angles are optional; all zero means not reported
		p := e.Positions[:]
		if p[0].PositionAngle != 0 || p[1].PositionAngle != 0 ||
			p[2].PositionAngle != 0 {
			if s := position.PositionAngleSpread(p...); s < min {
				e.warn(fmt.Sprintf("position angle spread %.2f° below %.2f°",
					s.Deg(), min.Deg()))
			}
		}
	}
}

func (e *Estimator) warn(msg string) {
	e.LowConfidence = true
	e.Warnings = append(e.Warnings, msg)
	e.log.Warn("low confidence alignment", "reason", msg)
}
