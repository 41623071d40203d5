package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	big = 1.0e30

	// epsilon shrinks the insertion sub-box at periodic domain faces so a
	// site landing exactly on a shared face is created by exactly one rank:
	// the low rank grows its lower bound outward by epsilon and the high
	// rank pulls its upper bound in by two epsilon.
	epsilon = 1.0e-6

	// lbFactor inflates the capacity estimate when several ranks insert,
	// since final per-rank counts are not known before the insert pass.
	lbFactor = 1.1

	// maxSiteCount is the ceiling of the per-rank lattice site counter.
	maxSiteCount = math.MaxInt32
)

// Summary reports the outcome of one placement invocation.
type Summary struct {
	Created   int64 // new particles, globally
	Requested int64 // random style: instances asked for
	Inserted  int64 // random style: instances accepted
	Units     string
	Elapsed   time.Duration
}

// Create runs one placement invocation on this rank. Every rank of the
// world must call it with identical Box, Lattice, counters and spec, and
// all ranks block until the whole operation completes. On success the
// particle container holds this rank's share of the newly created
// particles, already migrated to their owning ranks, and the global
// counters are up to date.
func Create(c *Comm, sys *System, spec *PlacementSpec) (*Summary, error) {
	if err := spec.Validate(sys); err != nil {
		return nil, err
	}

	cr := &creator{
		c:         c,
		sys:       sys,
		spec:      spec,
		dim:       sys.Box.Dimension,
		triclinic: sys.Box.Triclinic,
		xone:      spec.Coord,
		overlap:   spec.Overlap,
	}

	if spec.Mode == ModeMolecule {
		if spec.Molecule.NSets > 1 && c.Rank() == 0 {
			logrus.Warnf("Molecule template %q for create has multiple sets", spec.Molecule.Name)
		}
		cr.ranmol = NewRankStream(spec.MolSeed, c.Rank())
		if spec.Rotate != nil {
			cr.rot = fixedRotation(spec.Rotate)
			cr.rotFixed = true
		}
	}

	// per-basis types for lattice fill
	if spec.Style == StyleBox || spec.Style == StyleRegion {
		nbasis := sys.Lattice.Nbasis()
		cr.basistype = make([]int, nbasis)
		for i := range cr.basistype {
			cr.basistype[i] = spec.Type
		}
		copy(cr.basistype, spec.BasisTypes)
	} else if spec.Units == UnitsLattice {
		// single/random coordinates and the separation distance are given
		// in lattice units
		for d := 0; d < 3; d++ {
			cr.xone[d] *= sys.Lattice.Spacing[d]
		}
		cr.overlap *= sys.Lattice.Spacing[0]
	}

	cr.setupSubBounds()

	c.Barrier()
	start := time.Now()

	sys.Atoms.ClearGhost()

	nprev := c.AllReduceSum(int64(sys.Atoms.Nlocal))
	nlocalPrev := sys.Atoms.Nlocal

	var inserted int64
	var err error
	switch spec.Style {
	case StyleSingle:
		cr.addSingle()
	case StyleRandom:
		inserted, err = cr.addRandom()
	default:
		err = cr.addLattice()
	}
	if err != nil {
		return nil, err
	}

	sum, err := cr.finalize(nlocalPrev, nprev, start)
	if err != nil {
		return nil, err
	}
	sum.Requested = spec.NRandom
	sum.Inserted = inserted
	return sum, nil
}

// creator carries the per-invocation state of one rank's placement run.
type creator struct {
	c    *Comm
	sys  *System
	spec *PlacementSpec

	dim       int
	triclinic bool

	// insertion sub-box, real coordinates for orthogonal boxes and lamda
	// coordinates for triclinic ones
	sublo, subhi [3]float64

	// union of every rank's insertion sub-box, same coordinate convention
	globlo, globhi [3]float64

	xone      [3]float64 // scaled single-point coordinate
	overlap   float64    // scaled minimum separation
	basistype []int

	ranmol   *RankStream
	rot      r3.Rotation
	rotFixed bool

	// lattice enumeration state
	ilo, ihi, jlo, jhi, klo, khi int
	nlatt                        int64
	nlattOverflow                bool
	flags                        []bool

	testErr error // first coordinate-test failure, escalated collectively
}

// setupSubBounds derives the insertion sub-box from the decomposition
// record. For box/region styles the bounds at periodic domain faces are
// shifted by epsilon (relative to the box extent, or absolute for
// triclinic lamda bounds) so boundary sites are owned exactly once.
func (cr *creator) setupSubBounds() {
	box := cr.sys.Box
	sub := cr.sys.Sub

	var eps [3]float64
	if cr.triclinic {
		eps = [3]float64{epsilon, epsilon, epsilon}
	} else {
		prd := box.Prd()
		for d := 0; d < 3; d++ {
			eps[d] = prd[d] * epsilon
		}
	}

	if cr.triclinic {
		cr.sublo, cr.subhi = sub.LamdaLo, sub.LamdaHi
		cr.globlo, cr.globhi = [3]float64{0, 0, 0}, [3]float64{1, 1, 1}
	} else {
		cr.sublo, cr.subhi = sub.Lo, sub.Hi
		cr.globlo, cr.globhi = box.Lo, box.Hi
	}

	if cr.spec.Style != StyleBox && cr.spec.Style != StyleRegion {
		return
	}
	for d := 0; d < 3; d++ {
		if !box.Periodic[d] {
			continue
		}
		cr.globlo[d] -= eps[d]
		cr.globhi[d] -= 2.0 * eps[d]
		if sub.Tiled {
			if sub.Split[d][0] == 0.0 {
				cr.sublo[d] -= eps[d]
			}
			if sub.Split[d][1] == 1.0 {
				cr.subhi[d] -= 2.0 * eps[d]
			}
		} else {
			if sub.Loc[d] == 0 {
				cr.sublo[d] -= eps[d]
			}
			if sub.Loc[d] == sub.Grid[d]-1 {
				cr.subhi[d] -= 2.0 * eps[d]
			}
		}
	}
}

// ownsCoord tests a point (lamda coordinates for triclinic boxes) against
// the insertion sub-box.
func (cr *creator) ownsCoord(coord [3]float64) bool {
	return coord[0] >= cr.sublo[0] && coord[0] < cr.subhi[0] &&
		coord[1] >= cr.sublo[1] && coord[1] < cr.subhi[1] &&
		coord[2] >= cr.sublo[2] && coord[2] < cr.subhi[2]
}

// inGlobalWindow tests a point against the union of all insertion
// sub-boxes. A point passes here exactly when some rank owns it, so every
// rank agrees on the outcome without communicating.
func (cr *creator) inGlobalWindow(coord [3]float64) bool {
	return coord[0] >= cr.globlo[0] && coord[0] < cr.globhi[0] &&
		coord[1] >= cr.globlo[1] && coord[1] < cr.globhi[1] &&
		coord[2] >= cr.globlo[2] && coord[2] < cr.globhi[2]
}

// addSingle places the configured coordinate if this rank owns it.
// At most one rank ever emits.
func (cr *creator) addSingle() {
	box := cr.sys.Box
	xone := cr.xone
	if cr.spec.Remap {
		box.Remap(&xone)
	}

	var coord [3]float64
	if cr.triclinic {
		lamda := box.X2Lamda(xone)
		if cr.spec.Remap {
			// a remapped coordinate that lands exactly on an upper periodic
			// face clamps back to zero; this applies to single style only
			for d := 0; d < 3; d++ {
				if box.Periodic[d] && (lamda[d] < 0.0 || lamda[d] >= 1.0) {
					lamda[d] = 0.0
				}
			}
		}
		coord = lamda
	} else {
		coord = xone
	}

	if cr.ownsCoord(coord) {
		if cr.spec.Mode == ModeAtom {
			cr.sys.Atoms.CreateAtom(cr.spec.Type, xone)
		} else {
			cr.addMolecule(xone)
		}
	}
}

// addMolecule instantiates one template copy centered at center: orient
// (fixed, or freshly drawn from the rank-private stream), rotate every
// offset, translate, and create one particle per offset. Topology
// references are provisional until finalization.
func (cr *creator) addMolecule(center [3]float64) {
	tmpl := cr.spec.Molecule
	rot := cr.rot
	if !cr.rotFixed {
		rot = randomRotation(cr.ranmol, cr.dim)
	}
	ctr := r3.Vec{X: center[0], Y: center[1], Z: center[2]}
	for m := 0; m < tmpl.NAtoms(); m++ {
		p := r3.Add(rot.Rotate(tmpl.Offsets[m]), ctr)
		i := cr.sys.Atoms.CreateAtom(cr.spec.Type+tmpl.Types[m], [3]float64{p.X, p.Y, p.Z})
		cr.sys.Atoms.AddMoleculeAtom(tmpl, m, i, 0)
	}
}

// evalCoordTest runs the conditional-placement predicate. A failure is
// recorded for collective escalation after the placement loop; the site is
// treated as rejected so every rank keeps walking the shared sequence.
func (cr *creator) evalCoordTest(x [3]float64) bool {
	ok, err := cr.spec.CoordTest.EvalAt(x[0], x[1], x[2])
	if err != nil {
		if cr.testErr == nil {
			cr.testErr = err
		}
		return false
	}
	return ok
}

// finalize produces globally consistent identifiers and counters, migrates
// new particles to their owning ranks, and reports the outcome.
func (cr *creator) finalize(nlocalPrev int, nprev int64, start time.Time) (*Summary, error) {
	c := cr.c
	a := cr.sys.Atoms

	// collective escalation of any coordinate-test failure
	if err := c.AllError(cr.testErr); err != nil {
		return nil, err
	}

	// init auxiliary per-particle data for the new atoms
	if cr.sys.PerAtomInit != nil {
		cr.sys.PerAtomInit(nlocalPrev, a.Nlocal)
	}

	// new global total, with identifier-range check
	natoms := c.AllReduceSum(int64(a.Nlocal))
	if natoms < 0 || natoms >= maxTag {
		return nil, fmt.Errorf("too many total particles")
	}
	a.Natoms = natoms

	if a.TagEnable {
		a.TagExtend(c)
		if err := a.TagCheck(c); err != nil {
			return nil, err
		}
	}
	a.MapInit()

	if cr.spec.Mode == ModeMolecule {
		cr.finalizeMolecules(nlocalPrev)
	}

	// remap new particles into the primary image and migrate everything to
	// its owning rank; molecule instances may straddle sub-box faces
	MigrateAtoms(c, cr.sys)
	a.MapInit()

	if cr.spec.Mode == ModeMolecule && a.Molecular &&
		cr.spec.Molecule.HasBonds() && !cr.spec.Molecule.HasSpecial() {
		BuildSpecial(c, cr.sys)
	}

	c.Barrier()
	elapsed := time.Since(start)
	created := natoms - nprev
	if c.Rank() == 0 {
		logrus.Infof("Created %d particles", created)
		lo, hi := cr.sys.Box.BoundBox()
		logrus.Infof("  using %s units in box (%g %g %g) to (%g %g %g)",
			cr.spec.Units, lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
		logrus.Infof("  create CPU = %.3f seconds", elapsed.Seconds())
	}

	return &Summary{
		Created: created,
		Units:   cr.spec.Units.String(),
		Elapsed: elapsed,
	}, nil
}

// finalizeMolecules assigns molecule identifiers and rewrites provisional
// topology references. Identifier offsets are only knowable now: phase one
// inserted with placeholder base 0, phase two adds each instance's true
// base, obtained from the global max molecule ID plus an exclusive
// prefix-scan of per-rank instance counts.
func (cr *creator) finalizeMolecules(nlocalPrev int) {
	c := cr.c
	a := cr.sys.Atoms
	tmpl := cr.spec.Molecule
	natoms := tmpl.NAtoms()

	molcreate := int64(a.Nlocal-nlocalPrev) / int64(natoms)

	nmoltotal := c.AllReduceSum(molcreate)
	a.Nbonds += nmoltotal * int64(len(tmpl.Bonds))
	a.Nangles += nmoltotal * int64(len(tmpl.Angles))
	a.Ndihedrals += nmoltotal * int64(len(tmpl.Dihedrals))
	a.Nimpropers += nmoltotal * int64(len(tmpl.Impropers))

	var moloffset int64
	if a.MolIDEnable {
		var max int64
		for i := 0; i < nlocalPrev; i++ {
			if a.Molecule[i] > max {
				max = a.Molecule[i]
			}
		}
		maxmol := c.AllReduceMax(max)
		moloffset = c.ExScan(molcreate) + maxmol
	}

	ilocal := nlocalPrev
	for i := int64(0); i < molcreate; i++ {
		var offset int64
		if a.TagEnable {
			offset = a.Tag[ilocal] - 1
		}
		for m := 0; m < natoms; m++ {
			if a.MolIDEnable {
				if len(tmpl.MolIDs) > 0 {
					a.Molecule[ilocal] = moloffset + int64(tmpl.MolIDs[m])
				} else {
					a.Molecule[ilocal] = moloffset + 1
				}
			}
			if a.Molecular {
				for bi := range a.Bonds[ilocal] {
					a.Bonds[ilocal][bi].Atom += offset
				}
				for ai := range a.Angles[ilocal] {
					for k := range a.Angles[ilocal][ai].Atoms {
						a.Angles[ilocal][ai].Atoms[k] += offset
					}
				}
				for di := range a.Dihedrals[ilocal] {
					for k := range a.Dihedrals[ilocal][di].Atoms {
						a.Dihedrals[ilocal][di].Atoms[k] += offset
					}
				}
				for ii := range a.Impropers[ilocal] {
					for k := range a.Impropers[ilocal][ii].Atoms {
						a.Impropers[ilocal][ii].Atoms[k] += offset
					}
				}
				for si := range a.Special[ilocal] {
					a.Special[ilocal][si] += offset
				}
			}
			ilocal++
		}
		if a.MolIDEnable {
			if len(tmpl.MolIDs) > 0 {
				moloffset += int64(tmpl.NMolecules())
			} else {
				moloffset++
			}
		}
	}
}
