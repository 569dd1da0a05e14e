package container

// Point2D is a single 2D point. The core never interprets its
// coordinates; algorithms that do are out of scope (spec.md §1).
type Point2D struct {
	X, Y float32
}

// Line2D is an ordered polyline.
type Line2D struct {
	Points []Point2D
}

// Mask2D is a sparse binary mask, stored as its set pixel coordinates
// (matching original_source's CoreGeometry mask representation).
type Mask2D struct {
	Pixels [][2]int32
}

// Area returns the pixel count of the mask. This is the one geometry
// "algorithm" the core ships, because the mask_area built-in transform
// is exercised directly by spec.md's end-to-end scenarios S1/S2; it is
// deliberately trivial and not a stand-in for the richer mask/line
// algorithms the spec marks out of scope.
func (m Mask2D) Area() float32 {
	return float32(len(m.Pixels))
}

// Centroid returns the arithmetic mean of a line's points, used by the
// line_point_distance built-in transform (spec.md §8 S3).
func (l Line2D) Centroid() Point2D {
	if len(l.Points) == 0 {
		return Point2D{}
	}
	var sx, sy float32
	for _, p := range l.Points {
		sx += p.X
		sy += p.Y
	}
	n := float32(len(l.Points))
	return Point2D{X: sx / n, Y: sy / n}
}
