// SPDX-License-Identifier: MIT
package pattern

import "math"

const (
	circleSegments = 32
	starInnerRatio = 0.5
)

// Outline returns the closed polyline for s: the first point is repeated at
// the end. Vertices are rotated by s.Rotation about s.Position.
func Outline(s Shape) []Point {
	var pts []Point
	switch s.Category {
	case Circle:
		pts = ring(circleSegments, func(int) float64 { return s.Radius })
	case Star:
		n := s.Category.Sides() * 2
		pts = ring(n, func(i int) float64 {
			if i%2 == 0 {
				return s.Radius
			}
			return s.Radius * starInnerRatio
		})
	default:
		pts = ring(s.Category.Sides(), func(int) float64 { return s.Radius })
	}

	sin, cos := math.Sincos(s.Rotation)
	for i, p := range pts {
		pts[i] = Point{
			X: s.Position.X + p.X*cos - p.Y*sin,
			Y: s.Position.Y + p.X*sin + p.Y*cos,
		}
	}
	return pts
}

// ring places n vertices evenly around the origin, radius(i) from it, and
// closes the loop.
func ring(n int, radius func(i int) float64) []Point {
	if n <= 0 {
		return nil
	}
	pts := make([]Point, 0, n+1)
	for i := range n {
		angle := float64(i) / float64(n) * 2 * math.Pi
		r := radius(i)
		pts = append(pts, Point{X: r * math.Cos(angle), Y: r * math.Sin(angle)})
	}
	return append(pts, pts[0])
}
