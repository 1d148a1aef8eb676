package turtle

// Path is one continuous stroke in a single color.
type Path struct {
	Color  string
	Points []Vec
	Sealed bool
}

// extend appends p unless it repeats the last vertex.
func (p *Path) extend(point Vec) bool {
	if p.Sealed {
		return false
	}
	if n := len(p.Points); n > 0 && p.Points[n-1].Near(point, epsilon) {
		return false
	}
	p.Points = append(p.Points, point)
	return true
}

// seal appends the final vertex and closes the path to further growth.
func (p *Path) seal(point Vec) {
	p.extend(point)
	p.Sealed = true
}

func (p *Path) clone() Path {
	out := Path{Color: p.Color, Sealed: p.Sealed, Points: make([]Vec, len(p.Points))}
	copy(out.Points, p.Points)
	return out
}

// Length returns the total polyline length.
func (p Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(p.Points); i++ {
		total += p.Points[i].Sub(p.Points[i-1]).Len()
	}
	return total
}
