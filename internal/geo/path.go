package geo

import (
	"slices"
	"strings"

	"github.com/joeblew999/plat-map/internal/observe"
	"github.com/paulmach/orb"
)

// Path is an ordered, mutable sequence of positions. Every mutating call
// raises exactly one change notification, however many positions it touches.
type Path struct {
	positions []Position
	changes   observe.Signal
}

// NewPath creates a path from positions.
func NewPath(positions ...Position) *Path {
	return &Path{positions: slices.Clone(positions)}
}

// PathFromLineString converts an orb line string or ring.
func PathFromLineString(ls []orb.Point) *Path {
	p := &Path{positions: make([]Position, len(ls))}
	for i, pt := range ls {
		p.positions[i] = FromPoint(pt)
	}
	return p
}

// Len returns the number of positions.
func (p *Path) Len() int { return len(p.positions) }

// At returns the position at index i.
func (p *Path) At(i int) Position { return p.positions[i] }

// Positions returns a copy of the positions.
func (p *Path) Positions() []Position { return slices.Clone(p.positions) }

// First returns the first position, if any.
func (p *Path) First() (Position, bool) {
	if len(p.positions) == 0 {
		return Position{}, false
	}
	return p.positions[0], true
}

// Last returns the last position, if any.
func (p *Path) Last() (Position, bool) {
	if len(p.positions) == 0 {
		return Position{}, false
	}
	return p.positions[len(p.positions)-1], true
}

// Append adds positions to the end of the path.
func (p *Path) Append(positions ...Position) {
	if len(positions) == 0 {
		return
	}
	p.positions = append(p.positions, positions...)
	p.changes.Notify()
}

// Insert places a position before index i.
func (p *Path) Insert(i int, pos Position) {
	p.positions = slices.Insert(p.positions, i, pos)
	p.changes.Notify()
}

// Set replaces the position at index i.
func (p *Path) Set(i int, pos Position) {
	if p.positions[i] == pos {
		return
	}
	p.positions[i] = pos
	p.changes.Notify()
}

// RemoveAt deletes the position at index i.
func (p *Path) RemoveAt(i int) {
	p.positions = slices.Delete(p.positions, i, i+1)
	p.changes.Notify()
}

// Replace swaps the whole sequence in one change.
func (p *Path) Replace(positions ...Position) {
	p.positions = slices.Clone(positions)
	p.changes.Notify()
}

// Clear removes every position.
func (p *Path) Clear() {
	if len(p.positions) == 0 {
		return
	}
	p.positions = nil
	p.changes.Notify()
}

// Subscribe registers fn to run after every mutation and returns a function
// that removes the subscription.
func (p *Path) Subscribe(fn func()) (unsubscribe func()) {
	return p.changes.Subscribe(fn)
}

// ToJSON renders the path as an array of [lon,lat] pairs. With closeRing set,
// a copy of the first position is appended when the last one differs.
func (p *Path) ToJSON(closeRing bool) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, pos := range p.positions {
		if i > 0 {
			sb.WriteByte(',')
		}
		pos.writeJSON(&sb)
	}
	if p.needsClosing(closeRing) {
		sb.WriteByte(',')
		p.positions[0].writeJSON(&sb)
	}
	sb.WriteByte(']')
	return sb.String()
}

func (p *Path) needsClosing(closeRing bool) bool {
	return closeRing && len(p.positions) > 0 && p.positions[0] != p.positions[len(p.positions)-1]
}

// LineString returns the path as an orb line string.
func (p *Path) LineString() orb.LineString {
	ls := make(orb.LineString, len(p.positions))
	for i, pos := range p.positions {
		ls[i] = pos.Point()
	}
	return ls
}

// Ring returns the path as an orb ring, closed when closeRing is set.
func (p *Path) Ring(closeRing bool) orb.Ring {
	r := orb.Ring(p.LineString())
	if p.needsClosing(closeRing) {
		r = append(r, p.positions[0].Point())
	}
	return r
}
