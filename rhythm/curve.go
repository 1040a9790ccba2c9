package rhythm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fogleman/ease"
)

var curves = map[string]ease.Function{
	"linear":       ease.Linear,
	"in_quad":      ease.InQuad,
	"out_quad":     ease.OutQuad,
	"in_out_quad":  ease.InOutQuad,
	"in_cubic":     ease.InCubic,
	"out_cubic":    ease.OutCubic,
	"in_out_cubic": ease.InOutCubic,
	"in_quart":     ease.InQuart,
	"out_quart":    ease.OutQuart,
	"in_out_quart": ease.InOutQuart,
	"in_sine":      ease.InSine,
	"out_sine":     ease.OutSine,
	"in_out_sine":  ease.InOutSine,
	"in_expo":      ease.InExpo,
	"out_expo":     ease.OutExpo,
	"in_out_expo":  ease.InOutExpo,
}

// Curve looks up an easing curve for CurveToValueAtTime by name, e.g.
// "in_quart". Dashes and case are ignored.
func Curve(name string) (ease.Function, error) {
	key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	if key == "" {
		return ease.Linear, nil
	}
	if fn, ok := curves[key]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: unknown curve %q", ErrInvalidValue, name)
}

// CurveNames lists the names Curve accepts.
func CurveNames() []string {
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
