package pipeline

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// FallbackColor is used for color literals that cannot be interpreted.
var FallbackColor = colornames.White

// ColorToken normalizes a configured color. A token containing a comma is an
// "r, g, b" triplet and becomes "rgb(r, g, b)". Any other token, and any
// triplet that does not parse, is returned unchanged.
func ColorToken(token string) string {
	if !strings.Contains(token, ",") {
		return token
	}

	parts := strings.Split(token, ",")
	if len(parts) != 3 {
		return token
	}

	rgb := [3]int{}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return token
		}
		rgb[i] = v
	}

	return fmt.Sprintf("rgb(%d, %d, %d)", rgb[0], rgb[1], rgb[2])
}

// ResolveColor turns a configured color into a drawing color. Unknown
// literals resolve to FallbackColor.
func ResolveColor(token string) color.RGBA {
	if c, ok := ParseColor(ColorToken(token)); ok {
		return c
	}
	return FallbackColor
}

// ParseColor understands CSS color names, rgb()/rgba() and #rgb/#rrggbb.
func ParseColor(literal string) (color.RGBA, bool) {
	s := strings.ToLower(strings.TrimSpace(literal))
	if s == "" {
		return color.RGBA{}, false
	}

	if c, ok := colornames.Map[s]; ok {
		return c, true
	}

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGB(s[4:len(s)-1], 3)
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseRGB(s[5:len(s)-1], 4)
	}

	return color.RGBA{}, false
}

func parseRGB(body string, n int) (color.RGBA, bool) {
	parts := strings.Split(body, ",")
	if len(parts) != n {
		return color.RGBA{}, false
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return color.RGBA{}, false
		}
		ch[i] = clampChannel(v)
	}

	alpha := uint8(255)
	if n == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.RGBA{}, false
		}
		alpha = clampChannel(int(a*255 + 0.5))
	}

	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha}, true
}

func parseHex(hex string) (color.RGBA, bool) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
