package sim

import (
	"fmt"
	"math"
)

// Box is the global simulation cell. Orthogonal boxes are axis-aligned
// rectangles; triclinic boxes add the xy/xz/yz tilt factors of a sheared
// (upper-triangular) cell. Positions inside a triclinic box are often
// handled in lamda coordinates: the fractional [0,1) coordinates of the
// sheared cell, independent of its tilt.
type Box struct {
	Lo, Hi     [3]float64
	Xy, Xz, Yz float64
	Triclinic  bool
	Periodic   [3]bool
	Dimension  int // 2 or 3
}

// Prd returns the box edge lengths.
func (b *Box) Prd() [3]float64 {
	return [3]float64{b.Hi[0] - b.Lo[0], b.Hi[1] - b.Lo[1], b.Hi[2] - b.Lo[2]}
}

// Validate checks the box is usable.
func (b *Box) Validate() error {
	if b.Dimension != 2 && b.Dimension != 3 {
		return fmt.Errorf("box dimension must be 2 or 3, got %d", b.Dimension)
	}
	for d := 0; d < 3; d++ {
		if b.Hi[d] <= b.Lo[d] {
			return fmt.Errorf("box has non-positive extent along axis %d", d)
		}
	}
	if !b.Triclinic && (b.Xy != 0 || b.Xz != 0 || b.Yz != 0) {
		return fmt.Errorf("tilt factors set on an orthogonal box")
	}
	return nil
}

// X2Lamda converts a box coordinate to lamda (fractional) coordinates.
func (b *Box) X2Lamda(x [3]float64) [3]float64 {
	prd := b.Prd()
	var l [3]float64
	l[2] = (x[2] - b.Lo[2]) / prd[2]
	l[1] = (x[1] - b.Lo[1] - b.Yz*l[2]) / prd[1]
	l[0] = (x[0] - b.Lo[0] - b.Xy*l[1] - b.Xz*l[2]) / prd[0]
	return l
}

// Lamda2X converts lamda coordinates back to box coordinates.
func (b *Box) Lamda2X(l [3]float64) [3]float64 {
	prd := b.Prd()
	return [3]float64{
		b.Lo[0] + l[0]*prd[0] + l[1]*b.Xy + l[2]*b.Xz,
		b.Lo[1] + l[1]*prd[1] + l[2]*b.Yz,
		b.Lo[2] + l[2]*prd[2],
	}
}

// Remap wraps x into the primary periodic image along each periodic axis.
// Non-periodic axes are left untouched. Triclinic boxes wrap in lamda space.
func (b *Box) Remap(x *[3]float64) {
	if b.Triclinic {
		l := b.X2Lamda(*x)
		for d := 0; d < 3; d++ {
			if b.Periodic[d] {
				l[d] -= math.Floor(l[d])
				// floor can push a value just below 1.0 back to 1.0 exactly
				if l[d] >= 1.0 {
					l[d] = 0.0
				}
			}
		}
		*x = b.Lamda2X(l)
		return
	}
	prd := b.Prd()
	for d := 0; d < 3; d++ {
		if !b.Periodic[d] {
			continue
		}
		for x[d] < b.Lo[d] {
			x[d] += prd[d]
		}
		for x[d] >= b.Hi[d] {
			x[d] -= prd[d]
		}
	}
}

// MinimumImage adjusts a displacement vector to its nearest periodic image.
// Triclinic displacements fold z first, then y, then x, since the tilt
// couples the higher axes into the lower ones.
func (b *Box) MinimumImage(d *[3]float64) {
	prd := b.Prd()
	if b.Periodic[2] {
		for math.Abs(d[2]) > 0.5*prd[2] {
			if d[2] < 0 {
				d[2] += prd[2]
				d[1] += b.Yz
				d[0] += b.Xz
			} else {
				d[2] -= prd[2]
				d[1] -= b.Yz
				d[0] -= b.Xz
			}
		}
	}
	if b.Periodic[1] {
		for math.Abs(d[1]) > 0.5*prd[1] {
			if d[1] < 0 {
				d[1] += prd[1]
				d[0] += b.Xy
			} else {
				d[1] -= prd[1]
				d[0] -= b.Xy
			}
		}
	}
	if b.Periodic[0] {
		for math.Abs(d[0]) > 0.5*prd[0] {
			if d[0] < 0 {
				d[0] += prd[0]
			} else {
				d[0] -= prd[0]
			}
		}
	}
}

// BoundBox returns the axis-aligned bounding box of the full cell,
// tilt included.
func (b *Box) BoundBox() (lo, hi [3]float64) {
	lo, hi = b.Lo, b.Hi
	if !b.Triclinic {
		return lo, hi
	}
	lo[0] += math.Min(0, b.Xy) + math.Min(0, b.Xz)
	hi[0] += math.Max(0, b.Xy) + math.Max(0, b.Xz)
	lo[1] += math.Min(0, b.Yz)
	hi[1] += math.Max(0, b.Yz)
	return lo, hi
}

// LamdaBBox returns the axis-aligned bounding box, in box coordinates, of
// the sheared region spanned by the lamda-space rectangle [llo, lhi].
func (b *Box) LamdaBBox(llo, lhi [3]float64) (lo, hi [3]float64) {
	for d := 0; d < 3; d++ {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}
	for corner := 0; corner < 8; corner++ {
		var l [3]float64
		for d := 0; d < 3; d++ {
			if corner&(1<<d) != 0 {
				l[d] = lhi[d]
			} else {
				l[d] = llo[d]
			}
		}
		x := b.Lamda2X(l)
		for d := 0; d < 3; d++ {
			lo[d] = math.Min(lo[d], x[d])
			hi[d] = math.Max(hi[d], x[d])
		}
	}
	return lo, hi
}

// Subdomain is one rank's ownership record within the decomposition: the
// sub-box it exclusively owns, in real coordinates for orthogonal boxes and
// lamda coordinates for triclinic ones, plus its position in the process
// grid (or its split fractions for tiled layouts). Tiled and Split only
// affect how the insertion window epsilon shifts are applied; Owner and
// atom migration support the uniform brick layout produced by Decompose,
// which never sets Tiled.
type Subdomain struct {
	Rank    int
	Grid    [3]int
	Loc     [3]int
	Lo, Hi  [3]float64 // real coordinates (orthogonal boxes)
	LamdaLo [3]float64
	LamdaHi [3]float64
	Tiled   bool
	Split   [3][2]float64 // fractional bounds along each axis
}

// Decompose carves the box into a uniform brick grid and returns rank's
// subdomain. The rank-to-grid mapping is x-fastest.
func Decompose(b *Box, grid [3]int, rank int) (Subdomain, error) {
	n := grid[0] * grid[1] * grid[2]
	if n < 1 {
		return Subdomain{}, fmt.Errorf("process grid %v is empty", grid)
	}
	if rank < 0 || rank >= n {
		return Subdomain{}, fmt.Errorf("rank %d outside process grid %v", rank, grid)
	}
	if b.Dimension == 2 && grid[2] != 1 {
		return Subdomain{}, fmt.Errorf("2d box cannot be decomposed along z")
	}

	var loc [3]int
	loc[0] = rank % grid[0]
	loc[1] = (rank / grid[0]) % grid[1]
	loc[2] = rank / (grid[0] * grid[1])

	sub := Subdomain{Rank: rank, Grid: grid, Loc: loc}
	for d := 0; d < 3; d++ {
		flo := float64(loc[d]) / float64(grid[d])
		fhi := float64(loc[d]+1) / float64(grid[d])
		sub.Split[d] = [2]float64{flo, fhi}
		sub.LamdaLo[d] = flo
		sub.LamdaHi[d] = fhi
		prd := b.Hi[d] - b.Lo[d]
		sub.Lo[d] = b.Lo[d] + flo*prd
		sub.Hi[d] = b.Lo[d] + fhi*prd
		if loc[d] == grid[d]-1 {
			// avoid round-off gaps at the box face
			sub.Hi[d] = b.Hi[d]
			sub.LamdaHi[d] = 1.0
		}
	}
	return sub, nil
}

// Owner returns the rank whose subdomain contains x. It requires the
// uniform brick decomposition produced by Decompose and does not consult
// Subdomain split fractions, so tiled layouts cannot be routed through it.
// x should already be remapped into the primary image along periodic axes;
// out-of-box coordinates along non-periodic axes clamp to the edge ranks.
func Owner(b *Box, grid [3]int, x [3]float64) int {
	l := b.X2Lamda(x)
	var loc [3]int
	for d := 0; d < 3; d++ {
		i := int(math.Floor(l[d] * float64(grid[d])))
		if i < 0 {
			i = 0
		}
		if i >= grid[d] {
			i = grid[d] - 1
		}
		loc[d] = i
	}
	return loc[0] + grid[0]*(loc[1]+grid[1]*loc[2])
}
