// Package style converts typed paint and layout values into the literal
// argument text the renderer's style commands expect.
package style

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"time"
)

// Quote renders s as a script string literal with all escaping applied.
func Quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal cannot fail for a string.
		return `""`
	}
	return string(b)
}

// IsExpression reports whether v looks like a renderer expression.
func IsExpression(v string) bool {
	return strings.Contains(v, "[")
}

// String quotes v unless it looks like an expression, which passes through
// as written.
func String(v string) string {
	if strings.TrimSpace(v) == "" {
		return `""`
	}
	if IsExpression(v) {
		return v
	}
	return Quote(v)
}

// Number renders f in its shortest round-trip form. Non-finite values have no
// script literal and render as 0.
func Number(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Int renders i.
func Int(i int) string { return strconv.Itoa(i) }

// Bool renders b.
func Bool(b bool) string { return strconv.FormatBool(b) }

// Millis renders d as whole milliseconds.
func Millis(d time.Duration) string {
	return strconv.FormatInt(int64(math.Round(float64(d)/float64(time.Millisecond))), 10)
}

// Color renders c as a quoted rgba() string with alpha in [0,1]. A nil color
// renders as transparent.
func Color(c color.Color) string {
	if c == nil {
		return `"rgba(0,0,0,0)"`
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	alpha := math.Round(float64(n.A)/255*1000) / 1000
	return fmt.Sprintf(`"rgba(%d,%d,%d,%s)"`, n.R, n.G, n.B, Number(alpha))
}

// ParseColor parses a CSS hex color: #rgb, #rrggbb or #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
