package imaging

// Classification thresholds for routing content between the plain text
// engine and the formula engine.
const (
	// DefaultAreaThreshold is the content area (in pixels) below which
	// near-square content counts as simple.
	DefaultAreaThreshold = 5000
	// DefaultMaxDimension is the per-side cap for the small-content rule.
	DefaultMaxDimension = 80
)

// IsSimple reports whether content with the given raw (unpadded) dimensions
// looks like a standalone number or short token rather than a formula.
// Rules apply in order, first match wins.
func IsSimple(width, height int) bool {
	if height == 0 {
		return true
	}

	ratio := float64(width) / float64(height)
	area := width * height

	// Wide content reads as an equation laid out horizontally.
	if ratio > 2.5 {
		return false
	}
	// Tall and narrow content reads as stacked fractions or matrices.
	if ratio < 0.35 {
		return false
	}
	if area < DefaultAreaThreshold && ratio >= 0.35 && ratio <= 2.0 {
		return true
	}
	if width < DefaultMaxDimension && height < DefaultMaxDimension && ratio >= 0.35 && ratio <= 2.0 {
		return true
	}

	return false
}
