package curve

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kartoza/moment-rotation/internal/joint"
	"github.com/kartoza/moment-rotation/internal/prediction"
)

// Point is a (rotation, moment) pair in mrad and kNm
type Point struct {
	Rotation float64 `json:"rotation"`
	Moment   float64 `json:"moment"`
}

// Bilinear is the origin, the yield point and the ultimate point, in order
type Bilinear [3]Point

// Origin returns point A
func (b Bilinear) Origin() Point { return b[0] }

// Yield returns point B
func (b Bilinear) Yield() Point { return b[1] }

// Ultimate returns point C
func (b Bilinear) Ultimate() Point { return b[2] }

// ErrIncomplete is returned when a label the curve needs has no value
var ErrIncomplete = errors.New("curve needs predictions that are unavailable")

// Build constructs the bilinear curve. When ki is zero or not finite the
// yield point collapses to the origin. Point C is taken as given.
func Build(ki, mjr, mmax, qu float64) Bilinear {
	yield := Point{}
	if ki != 0 && !math.IsNaN(ki) && !math.IsInf(ki, 0) {
		yield = Point{Rotation: mjr / ki, Moment: mjr}
	}
	return Bilinear{
		{Rotation: 0, Moment: 0},
		yield,
		{Rotation: qu, Moment: mmax},
	}
}

// FromResult builds a curve from a prediction. A missing Ki takes the zero
// stiffness fallback; any other missing label returns ErrIncomplete.
func FromResult(res prediction.Result) (Bilinear, error) {
	var missing []string
	for _, label := range []joint.Label{joint.MjR, joint.Mmax, joint.Qu} {
		if !res.Get(label).Available() {
			missing = append(missing, label.Key())
		}
	}
	if len(missing) > 0 {
		return Bilinear{}, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	ki, _ := res.Get(joint.Ki).Get()
	mjr, _ := res.Get(joint.MjR).Get()
	mmax, _ := res.Get(joint.Mmax).Get()
	qu, _ := res.Get(joint.Qu).Get()
	return Build(ki, mjr, mmax, qu), nil
}
