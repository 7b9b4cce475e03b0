package joint

import "fmt"

// Label is one of the four predicted response quantities. Each label has
// its own model.
type Label int

const (
	// Ki is the initial rotational stiffness Sj,ini
	Ki Label = iota
	// MjR is the plastic moment resistance
	MjR
	// Mmax is the maximum moment resistance
	Mmax
	// Qu is the ultimate rotation capacity
	Qu
)

// NumLabels is the size of the closed label set
const NumLabels = 4

var labelKeys = [NumLabels]string{"Ki", "Mj,R", "Mmax", "Qu"}

var labelCaptions = [NumLabels]string{
	"Initial rotational stiffness: Sj,ini(MNm/rad)",
	"Plastic moment resistance: Mj,R(kN.m)",
	"Maximum moment resistance: Mj,max(kN.m)",
	"Ultimate rotation: Φj,u(mrad)",
}

// Labels returns every label in display order
func Labels() []Label {
	return []Label{Ki, MjR, Mmax, Qu}
}

// Key returns the identifier used in artifact names and JSON, e.g. "Mj,R"
func (l Label) Key() string {
	if !l.valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelKeys[l]
}

// Caption returns the output field caption including the unit
func (l Label) Caption() string {
	if !l.valid() {
		return l.Key()
	}
	return labelCaptions[l]
}

func (l Label) String() string { return l.Key() }

// MarshalText lets labels key JSON objects
func (l Label) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("unknown label %d", int(l))
	}
	return []byte(labelKeys[l]), nil
}

// UnmarshalText parses a label key
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel resolves a key such as "Ki" or "Mj,R"
func ParseLabel(key string) (Label, error) {
	for i, k := range labelKeys {
		if k == key {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", key)
}

func (l Label) valid() bool { return l >= 0 && int(l) < NumLabels }
