package plot

import (
	"github.com/kartoza/moment-rotation/internal/curve"
)

// clipPolyline cuts a polyline to the viewport rectangle. Every maximal
// run that stays visible becomes one returned piece of at least two points.
func clipPolyline(points []curve.Point, view Viewport) [][]curve.Point {
	var pieces [][]curve.Point
	var current []curve.Point

	flush := func() {
		if len(current) >= 2 {
			pieces = append(pieces, current)
		}
		current = nil
	}

	for i := 1; i < len(points); i++ {
		a, b, ok := clipSegment(points[i-1], points[i], view)
		if !ok {
			flush()
			continue
		}
		// a new piece starts whenever the segment entered the view from outside
		if len(current) == 0 || a != points[i-1] {
			flush()
			current = append(current, a)
		}
		current = append(current, b)
		if b != points[i] {
			flush()
		}
	}
	flush()
	return pieces
}

// clipSegment is Liang-Barsky clipping of p->q against view
func clipSegment(p, q curve.Point, view Viewport) (curve.Point, curve.Point, bool) {
	dx := q.Rotation - p.Rotation
	dy := q.Moment - p.Moment
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, p.Rotation - view.XMin},
		{dx, view.XMax - p.Rotation},
		{-dy, p.Moment - view.YMin},
		{dy, view.YMax - p.Moment},
	}
	for _, e := range edges {
		pe, qe := e[0], e[1]
		if pe == 0 {
			if qe < 0 {
				return p, q, false
			}
			continue
		}
		t := qe / pe
		if pe < 0 {
			if t > t1 {
				return p, q, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return p, q, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}

	a, b := p, q
	if t0 > 0 {
		a = curve.Point{Rotation: p.Rotation + t0*dx, Moment: p.Moment + t0*dy}
	}
	if t1 < 1 {
		b = curve.Point{Rotation: p.Rotation + t1*dx, Moment: p.Moment + t1*dy}
	}
	return a, b, true
}

// inside reports whether p lies in the closed viewport
func (v Viewport) inside(p curve.Point) bool {
	return p.Rotation >= v.XMin && p.Rotation <= v.XMax && p.Moment >= v.YMin && p.Moment <= v.YMax
}
