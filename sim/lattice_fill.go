package sim

import (
	"fmt"
)

// siteAction parameterizes the shared lattice walk: sizing pass, plain
// insertion, or insertion gated on dilution flags.
type siteAction int

const (
	actionCount siteAction = iota
	actionInsert
	actionInsertSelected
)

// addLattice fills every lattice site overlapping this rank's sub-box,
// optionally thinned to a random subset. A count-only pass always runs
// first to size the container (and, when diluting, to learn the global
// site total); the container is grown once before any insertion so
// appends cannot reallocate mid-pass.
func (cr *creator) addLattice() error {
	c := cr.c
	sys := cr.sys
	spec := cr.spec

	// bounding box of my sub-box in real space; for triclinic boxes, the
	// bounding box of the sheared sub-box corners
	var bboxlo, bboxhi [3]float64
	if cr.triclinic {
		bboxlo, bboxhi = sys.Box.LamdaBBox(sys.Sub.LamdaLo, sys.Sub.LamdaHi)
	} else {
		bboxlo, bboxhi = sys.Sub.Lo, sys.Sub.Hi
	}
	cr.narrowByRegion(&bboxlo, &bboxhi)
	cr.setLoopBounds(bboxlo, bboxhi)

	// sizing pass
	cr.nlattOverflow = false
	cr.loopLattice(actionCount)

	var overflow int64
	if cr.nlattOverflow {
		overflow = 1
	}
	if c.AllReduceSum(overflow) != 0 {
		return fmt.Errorf("lattice site count overflow on one or more ranks")
	}

	// nadd = particles this rank will insert (estimated when diluting)
	var nadd int64
	var nsubset, ntotal int64
	if spec.Dilution == DiluteNone {
		if c.Size() == 1 {
			nadd = cr.nlatt
		} else {
			nadd = int64(lbFactor * float64(cr.nlatt))
		}
	} else {
		ntotal = c.AllReduceSum(cr.nlatt)
		nsubset = spec.DilutionCount
		if spec.Dilution == DiluteRatio {
			nsubset = int64(spec.DilutionFrac * float64(ntotal))
		}
		if nsubset > ntotal {
			return fmt.Errorf("dilution subset size %d exceeds %d lattice sites", nsubset, ntotal)
		}
		if c.Size() == 1 {
			nadd = nsubset
		} else {
			nadd = int64(lbFactor * float64(nsubset) / float64(ntotal) * float64(cr.nlatt))
		}
	}

	if spec.Mode == ModeMolecule {
		nadd *= int64(spec.Molecule.NAtoms())
	}
	sys.Atoms.Grow(int(Roundup(nadd + int64(sys.Atoms.Nlocal))))

	// insertion pass
	if spec.Dilution == DiluteNone {
		cr.loopLattice(actionInsert)
		return nil
	}

	// Dilution must pick the same physical sites no matter how the box is
	// decomposed, so the selected walk cannot use the sub-box loop bounds:
	// rank-local enumeration concatenated by rank is not the global site
	// order. Instead every rank rebuilds identical whole-domain bounds,
	// walks the full canonical sequence, and inserts only the accepted
	// sites it owns.
	var glo, ghi [3]float64
	if cr.triclinic {
		glo, ghi = sys.Box.BoundBox()
	} else {
		glo, ghi = sys.Box.Lo, sys.Box.Hi
	}
	cr.narrowByRegion(&glo, &ghi)
	cr.setLoopBounds(glo, ghi)

	cr.flags = SelectSubset(spec.DilutionSeed, nsubset, ntotal, 0, ntotal)
	cr.loopLattice(actionInsertSelected)
	cr.flags = nil
	return nil
}

// narrowByRegion shrinks a bounding box to the region's extent when one is
// available. This is purely a speedup, the per-site region test in the walk
// still decides.
func (cr *creator) narrowByRegion(bboxlo, bboxhi *[3]float64) {
	if cr.spec.Style != StyleRegion {
		return
	}
	rlo, rhi, ok := cr.spec.Region.Extent()
	if !ok {
		return
	}
	for d := 0; d < 3; d++ {
		if rlo[d] > bboxlo[d] {
			bboxlo[d] = min(rlo[d], bboxhi[d])
		}
		if rhi[d] < bboxhi[d] {
			bboxhi[d] = max(rhi[d], bboxlo[d])
		}
	}
}

// setLoopBounds maps the 8 corners of a real-space bounding box through
// the lattice inverse and stores the resulting lattice-space loop bounds,
// rounded outward by one cell to guard against round-off dropping boundary
// sites. Truncation rounds toward zero, so negative minima need one more.
func (cr *creator) setLoopBounds(bboxlo, bboxhi [3]float64) {
	min3 := [3]float64{big, big, big}
	max3 := [3]float64{-big, -big, -big}
	for corner := 0; corner < 8; corner++ {
		var x [3]float64
		for d := 0; d < 3; d++ {
			if corner&(1<<d) != 0 {
				x[d] = bboxhi[d]
			} else {
				x[d] = bboxlo[d]
			}
		}
		cr.sys.Lattice.BBox(x, &min3, &max3)
	}

	cr.ilo = int(min3[0]) - 1
	cr.jlo = int(min3[1]) - 1
	cr.klo = int(min3[2]) - 1
	cr.ihi = int(max3[0]) + 1
	cr.jhi = int(max3[1]) + 1
	cr.khi = int(max3[2]) + 1
	if min3[0] < 0.0 {
		cr.ilo--
	}
	if min3[1] < 0.0 {
		cr.jlo--
	}
	if min3[2] < 0.0 {
		cr.klo--
	}
}

// loopLattice walks every (i,j,k,m) combination within the loop bounds in
// the canonical k,j,i,m order and performs the action on each accepted
// site. For counting and plain insertion the bounds cover this rank's
// sub-box and only owned sites count. For selected insertion the bounds
// cover the whole domain and the running count indexes the dilution flags,
// advancing for every accepted site regardless of owner, so that flag
// position t names the same physical site on every rank.
func (cr *creator) loopLattice(action siteAction) {
	lat := cr.sys.Lattice
	spec := cr.spec
	nbasis := lat.Nbasis()

	cr.nlatt = 0

	for k := cr.klo; k <= cr.khi; k++ {
		for j := cr.jlo; j <= cr.jhi; j++ {
			for i := cr.ilo; i <= cr.ihi; i++ {
				for m := 0; m < nbasis; m++ {
					x := lat.SiteCoord(Site{I: i, J: j, K: k, M: m})

					if spec.Style == StyleRegion && !spec.Region.Contains(x[0], x[1], x[2]) {
						continue
					}
					if spec.CoordTest != nil && !cr.evalCoordTest(x) {
						continue
					}

					var coord [3]float64
					if cr.triclinic {
						coord = cr.sys.Box.X2Lamda(x)
					} else {
						coord = x
					}

					if action == actionInsertSelected {
						if !cr.inGlobalWindow(coord) {
							continue
						}
						if cr.flags[cr.nlatt] && cr.ownsCoord(coord) {
							cr.insertSite(m, x)
						}
						cr.nlatt++
						continue
					}

					if !cr.ownsCoord(coord) {
						continue
					}

					switch action {
					case actionInsert:
						cr.insertSite(m, x)
					case actionCount:
						if cr.nlatt == maxSiteCount {
							cr.nlattOverflow = true
						}
					}

					cr.nlatt++
				}
			}
		}
	}
}

// insertSite creates one atom (with its basis type) or one molecule
// instance at an accepted site.
func (cr *creator) insertSite(m int, x [3]float64) {
	if cr.spec.Mode == ModeAtom {
		cr.sys.Atoms.CreateAtom(cr.basistype[m], x)
	} else {
		cr.addMolecule(x)
	}
}
