package author

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/voguh/unichat-sub000/internal/event"
)

// Fixed palette used where a platform has no per-user color.
const (
	ColorBroadcaster = "#FFD600"
	ColorModerator   = "#5E84F1"
	ColorSponsor     = "#2BA640"
	ColorViewer      = "#FFFFFFB2"
)

// Channel values are kept inside [colorFloor, colorFloor+colorSpan) so the
// result is readable on both dark and light overlays.
const (
	colorFloor = 0x40
	colorSpan  = 0xB0
)

// Color derives a stable "#RRGGBB" color from a name. The same name always
// maps to the same color, across runs and processes.
func Color(name string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	sum := h.Sum32()

	r := colorFloor + ((sum>>16)&0xFF)%colorSpan
	g := colorFloor + ((sum>>8)&0xFF)%colorSpan
	b := colorFloor + (sum&0xFF)%colorSpan
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// RankColor returns the palette color of a rank.
func RankColor(rank event.AuthorType) string {
	switch rank {
	case event.AuthorBroadcaster:
		return ColorBroadcaster
	case event.AuthorModerator:
		return ColorModerator
	case event.AuthorSponsor:
		return ColorSponsor
	default:
		return ColorViewer
	}
}
