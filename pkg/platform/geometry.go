package platform

// Size describes view dimensions in logical pixels.
type Size struct {
	Width  float64
	Height float64
}

// IsEmpty reports whether either dimension is zero or negative.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Offset describes a view position in logical pixels.
type Offset struct {
	X float64
	Y float64
}
