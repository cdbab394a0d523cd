package brand

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/deckforge/api/internal/models"
)

// MaxColors bounds how many candidate colors are kept.
const MaxColors = 5

var (
	customPropRe = regexp.MustCompile(`--[\w-]+\s*:\s*(#[0-9a-fA-F]{6}\b|#[0-9a-fA-F]{3}\b|rgba?\([^)]*\))`)
	literalRe    = regexp.MustCompile(`#[0-9a-fA-F]{6}\b|#[0-9a-fA-F]{3}\b|rgba?\([^)]*\)`)
	rgbRe        = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})`)
)

// extractColors returns deduplicated #rrggbb colors, custom properties first,
// with near-white and near-black dropped.
func extractColors(css string) []string {
	var candidates []string
	for _, m := range customPropRe.FindAllStringSubmatch(css, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, literalRe.FindAllString(css, -1)...)

	seen := make(map[string]bool)
	var colors []string
	for _, c := range candidates {
		hex, r, g, b, ok := normalize(c)
		if !ok || seen[hex] {
			continue
		}
		seen[hex] = true
		if nearWhite(r, g, b) || nearBlack(r, g, b) {
			continue
		}
		colors = append(colors, hex)
		if len(colors) == MaxColors {
			break
		}
	}
	return colors
}

func normalize(c string) (hex string, r, g, b int, ok bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	if strings.HasPrefix(c, "#") {
		digits := c[1:]
		if len(digits) == 3 {
			digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
		}
		if len(digits) != 6 {
			return "", 0, 0, 0, false
		}
		v, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return "", 0, 0, 0, false
		}
		r, g, b = int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)
		return "#" + digits, r, g, b, true
	}

	m := rgbRe.FindStringSubmatch(c)
	if m == nil {
		return "", 0, 0, 0, false
	}
	r, _ = strconv.Atoi(m[1])
	g, _ = strconv.Atoi(m[2])
	b, _ = strconv.Atoi(m[3])
	if r > 255 || g > 255 || b > 255 {
		return "", 0, 0, 0, false
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b), r, g, b, true
}

func luminance(r, g, b int) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

func nearWhite(r, g, b int) bool { return luminance(r, g, b) > 235 }

func nearBlack(r, g, b int) bool { return luminance(r, g, b) < 25 }

// paletteFrom fills primary, secondary and accent from colors, defaulting the rest.
func paletteFrom(colors []string) models.Palette {
	p := models.DefaultPalette()
	slots := []*string{&p.Primary, &p.Secondary, &p.Accent}
	for i, c := range colors {
		if i >= len(slots) {
			break
		}
		*slots[i] = c
	}
	return p
}
