package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// addRandom places up to NRandom instances at uniformly random positions.
// Every rank consumes the identical trial stream, so every rank agrees on
// each trial's coordinates and outcome; only the owning rank inserts.
// Returns the number of instances actually accepted.
func (cr *creator) addRandom() (int64, error) {
	spec := cr.spec
	box := cr.sys.Box
	a := cr.sys.Atoms

	var odistsq float64
	overlapTest := spec.Overlap > 0
	if overlapTest {
		odist := cr.overlap
		if spec.Mode == ModeMolecule {
			odist += spec.Molecule.Radius
		}
		odistsq = odist * odist
	}

	// trial stream: same seed and draw sequence on every rank. The warm-up
	// decorrelates runs repeated with consecutive seeds.
	random := NewSharedStream(spec.Seed)
	random.Warmup(30)

	// creation bounding box, in real units even for triclinic boxes
	var lo, hi [3]float64
	var lamdaLo, lamdaHi [3]float64
	if cr.triclinic {
		lo, hi = box.BoundBox()
		lamdaLo = [3]float64{0, 0, 0}
		lamdaHi = [3]float64{1, 1, 1}
	} else {
		lo, hi = box.Lo, box.Hi
	}
	zmid := lo[2] + 0.5*(hi[2]-lo[2])

	if spec.Region != nil {
		if rlo, rhi, ok := spec.Region.Extent(); ok {
			for d := 0; d < 3; d++ {
				if rlo[d] > lo[d] {
					lo[d] = rlo[d]
				}
				if rhi[d] < hi[d] {
					hi[d] = rhi[d]
				}
			}
		}
	}
	if lo[0] > hi[0] || lo[1] > hi[1] || lo[2] > hi[2] {
		return 0, fmt.Errorf("no overlap of box and region for random placement")
	}

	var ninsert int64
	for i := int64(0); i < spec.NRandom; i++ {

		// attempt up to maxtry trials; all criteria are evaluated in the
		// same order on every rank
		var xone, coord [3]float64
		success := false
		for ntry := 0; ntry < spec.EffectiveMaxTry(); ntry++ {
			xone[0] = lo[0] + random.Uniform()*(hi[0]-lo[0])
			xone[1] = lo[1] + random.Uniform()*(hi[1]-lo[1])
			xone[2] = lo[2] + random.Uniform()*(hi[2]-lo[2])
			if cr.dim == 2 {
				xone[2] = zmid
			}

			if spec.Region != nil && !spec.Region.Contains(xone[0], xone[1], xone[2]) {
				continue
			}
			if spec.CoordTest != nil && !cr.evalCoordTest(xone) {
				continue
			}

			if cr.triclinic {
				l := box.X2Lamda(xone)
				coord = l
				if l[0] < lamdaLo[0] || l[0] >= lamdaHi[0] ||
					l[1] < lamdaLo[1] || l[1] >= lamdaHi[1] ||
					l[2] < lamdaLo[2] || l[2] >= lamdaHi[2] {
					continue
				}
			} else {
				coord = xone
			}

			// separation test against all local particles, prior insertions
			// included; a rejection anywhere rejects the trial everywhere
			if overlapTest {
				reject := false
				for j := 0; j < a.Nlocal; j++ {
					d := [3]float64{
						xone[0] - a.X[j][0],
						xone[1] - a.X[j][1],
						xone[2] - a.X[j][2],
					}
					box.MinimumImage(&d)
					if d[0]*d[0]+d[1]*d[1]+d[2]*d[2] < odistsq {
						reject = true
						break
					}
				}
				if cr.c.AllReduceOr(reject) {
					continue
				}
			}

			success = true
			break
		}

		// exhausting maxtry skips this instance, it is not an error
		if !success {
			continue
		}

		ninsert++

		if cr.ownsCoord(coord) {
			if spec.Mode == ModeAtom {
				a.CreateAtom(spec.Type, xone)
			} else {
				cr.addMolecule(xone)
			}
		}
	}

	if ninsert < spec.NRandom && cr.c.Rank() == 0 {
		logrus.Warnf("Only inserted %d particles out of %d", ninsert, spec.NRandom)
	}

	return ninsert, nil
}
