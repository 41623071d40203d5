package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// LatticeStyle selects a Bravais lattice plus basis.
type LatticeStyle int

const (
	LatticeNone LatticeStyle = iota
	LatticeSC
	LatticeBCC
	LatticeFCC
	LatticeHCP
	LatticeDiamond
	LatticeSQ
	LatticeSQ2
	LatticeHex
	LatticeCustom
)

var latticeStyleNames = map[LatticeStyle]string{
	LatticeNone:    "none",
	LatticeSC:      "sc",
	LatticeBCC:     "bcc",
	LatticeFCC:     "fcc",
	LatticeHCP:     "hcp",
	LatticeDiamond: "diamond",
	LatticeSQ:      "sq",
	LatticeSQ2:     "sq2",
	LatticeHex:     "hex",
	LatticeCustom:  "custom",
}

func (s LatticeStyle) String() string {
	if n, ok := latticeStyleNames[s]; ok {
		return n
	}
	return fmt.Sprintf("LatticeStyle(%d)", int(s))
}

// ParseLatticeStyle maps a style name to its LatticeStyle.
func ParseLatticeStyle(name string) (LatticeStyle, error) {
	for s, n := range latticeStyleNames {
		if n == name {
			return s, nil
		}
	}
	return LatticeNone, fmt.Errorf("unknown lattice style %q", name)
}

// Lattice is an unbounded 3-d periodic lattice: a list of basis points in
// unit-cell fractional coordinates plus per-axis spacings and an origin.
// A LatticeSite (i,j,k,m) maps to the box coordinate
// origin + spacing .* (cell + basis[m]).
type Lattice struct {
	Style   LatticeStyle
	Basis   []r3.Vec   // fractional positions within one unit cell
	Spacing [3]float64 // unit-cell edge lengths in box units
	Origin  [3]float64
}

// NewLattice builds a lattice of the given style with lattice constant
// scale. The 2d styles keep a unit z spacing so a 2d box maps cleanly.
func NewLattice(style LatticeStyle, scale float64) (*Lattice, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("lattice scale must be > 0, got %g", scale)
	}
	l := &Lattice{Style: style, Spacing: [3]float64{scale, scale, scale}}
	switch style {
	case LatticeNone:
		return l, nil
	case LatticeSC, LatticeSQ:
		l.Basis = []r3.Vec{{}}
	case LatticeBCC:
		l.Basis = []r3.Vec{{}, {X: 0.5, Y: 0.5, Z: 0.5}}
	case LatticeFCC:
		l.Basis = []r3.Vec{
			{},
			{X: 0.5, Y: 0.5},
			{X: 0.5, Z: 0.5},
			{Y: 0.5, Z: 0.5},
		}
	case LatticeHCP:
		l.Basis = []r3.Vec{
			{},
			{X: 0.5, Y: 0.5},
			{X: 0.5, Y: 5.0 / 6.0, Z: 0.5},
			{Y: 1.0 / 3.0, Z: 0.5},
		}
		l.Spacing[1] = scale * math.Sqrt(3.0)
		l.Spacing[2] = scale * math.Sqrt(8.0/3.0)
	case LatticeDiamond:
		l.Basis = []r3.Vec{
			{},
			{X: 0.5, Y: 0.5},
			{X: 0.5, Z: 0.5},
			{Y: 0.5, Z: 0.5},
			{X: 0.25, Y: 0.25, Z: 0.25},
			{X: 0.75, Y: 0.75, Z: 0.25},
			{X: 0.75, Y: 0.25, Z: 0.75},
			{X: 0.25, Y: 0.75, Z: 0.75},
		}
	case LatticeSQ2:
		l.Basis = []r3.Vec{{}, {X: 0.5, Y: 0.5}}
	case LatticeHex:
		l.Basis = []r3.Vec{{}, {X: 0.5, Y: 0.5}}
		l.Spacing[1] = scale * math.Sqrt(3.0)
	case LatticeCustom:
		// caller fills Basis and Spacing directly
	default:
		return nil, fmt.Errorf("unknown lattice style %d", int(style))
	}
	return l, nil
}

// Nbasis returns the number of basis points per unit cell.
func (l *Lattice) Nbasis() int {
	return len(l.Basis)
}

// CheckDimension rejects style/dimension pairs that cannot tile the box:
// the 3d styles in a 2d box and vice versa.
func (l *Lattice) CheckDimension(dim int) error {
	threeD := l.Style == LatticeSC || l.Style == LatticeBCC || l.Style == LatticeFCC ||
		l.Style == LatticeHCP || l.Style == LatticeDiamond
	twoD := l.Style == LatticeSQ || l.Style == LatticeSQ2 || l.Style == LatticeHex
	if dim == 2 && threeD {
		return fmt.Errorf("lattice style %s incompatible with 2d simulation", l.Style)
	}
	if dim == 3 && twoD {
		return fmt.Errorf("lattice style %s incompatible with 3d simulation", l.Style)
	}
	return nil
}

// Site identifies one lattice site: unit cell (I,J,K) plus basis index M.
// Sites are enumerated in canonical K,J,I,M nesting order (outermost to
// innermost); the distributed dilution sampler depends on every rank using
// this exact order.
type Site struct {
	I, J, K int
	M       int
}

// Lattice2Box maps a lattice-space coordinate to box coordinates.
func (l *Lattice) Lattice2Box(x [3]float64) [3]float64 {
	return [3]float64{
		l.Origin[0] + x[0]*l.Spacing[0],
		l.Origin[1] + x[1]*l.Spacing[1],
		l.Origin[2] + x[2]*l.Spacing[2],
	}
}

// SiteCoord returns the box coordinate of a site.
func (l *Lattice) SiteCoord(s Site) [3]float64 {
	b := l.Basis[s.M]
	return l.Lattice2Box([3]float64{
		float64(s.I) + b.X,
		float64(s.J) + b.Y,
		float64(s.K) + b.Z,
	})
}

// BBox maps a box-space point into lattice space and folds it into the
// running lattice-space bounds. Callers feed the eight corners of a
// bounding box through it to obtain loop bounds for site enumeration.
func (l *Lattice) BBox(x [3]float64, min, max *[3]float64) {
	for d := 0; d < 3; d++ {
		v := (x[d] - l.Origin[d]) / l.Spacing[d]
		if v < min[d] {
			min[d] = v
		}
		if v > max[d] {
			max[d] = v
		}
	}
}
