package sim

import "fmt"

// Region is a point-containment test over box coordinates. Extent reports
// an axis-aligned bounding box when one is known; engines use it only to
// narrow search windows, never as a substitute for Contains.
type Region interface {
	Contains(x, y, z float64) bool
	// Extent returns the bounding box and true, or ok=false when the
	// region is unbounded (e.g. an exterior region).
	Extent() (lo, hi [3]float64, ok bool)
}

// BlockRegion is an axis-aligned rectangular region.
type BlockRegion struct {
	Lo, Hi [3]float64
}

func (r *BlockRegion) Contains(x, y, z float64) bool {
	return x >= r.Lo[0] && x <= r.Hi[0] &&
		y >= r.Lo[1] && y <= r.Hi[1] &&
		z >= r.Lo[2] && z <= r.Hi[2]
}

func (r *BlockRegion) Extent() (lo, hi [3]float64, ok bool) {
	return r.Lo, r.Hi, true
}

// SphereRegion is a spherical region.
type SphereRegion struct {
	Center [3]float64
	Radius float64
}

func (r *SphereRegion) Contains(x, y, z float64) bool {
	dx := x - r.Center[0]
	dy := y - r.Center[1]
	dz := z - r.Center[2]
	return dx*dx+dy*dy+dz*dz <= r.Radius*r.Radius
}

func (r *SphereRegion) Extent() (lo, hi [3]float64, ok bool) {
	for d := 0; d < 3; d++ {
		lo[d] = r.Center[d] - r.Radius
		hi[d] = r.Center[d] + r.Radius
	}
	return lo, hi, true
}

// IntersectRegion is the intersection of several regions.
type IntersectRegion struct {
	Parts []Region
}

func (r *IntersectRegion) Contains(x, y, z float64) bool {
	for _, p := range r.Parts {
		if !p.Contains(x, y, z) {
			return false
		}
	}
	return true
}

func (r *IntersectRegion) Extent() (lo, hi [3]float64, ok bool) {
	any := false
	for _, p := range r.Parts {
		plo, phi, pok := p.Extent()
		if !pok {
			continue
		}
		if !any {
			lo, hi = plo, phi
			any = true
			continue
		}
		for d := 0; d < 3; d++ {
			if plo[d] > lo[d] {
				lo[d] = plo[d]
			}
			if phi[d] < hi[d] {
				hi[d] = phi[d]
			}
		}
	}
	return lo, hi, any
}

// CoordTest is a conditional-placement predicate evaluated at candidate
// coordinates. It stands in for an external expression evaluator; tests
// supply closures.
type CoordTest interface {
	EvalAt(x, y, z float64) (bool, error)
}

// CoordTestFunc adapts a function to the CoordTest interface.
type CoordTestFunc func(x, y, z float64) (bool, error)

func (f CoordTestFunc) EvalAt(x, y, z float64) (bool, error) {
	return f(x, y, z)
}

// NamedRegions is a lookup table of regions by identifier, the shape the
// CLI layer resolves region references through.
type NamedRegions map[string]Region

// Get resolves a region reference.
func (n NamedRegions) Get(id string) (Region, error) {
	r, ok := n[id]
	if !ok {
		return nil, fmt.Errorf("region %q does not exist", id)
	}
	return r, nil
}
