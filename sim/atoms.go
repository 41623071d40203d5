package sim

import (
	"fmt"
	"math"
)

// growDelta is the chunk size Grow rounds capacities up to.
const growDelta = 16384

// maxTag is the ceiling on global particle identifiers.
const maxTag = math.MaxInt64

// BondRef is one bond attached to an atom: the bond type and the global
// tag of the partner. Until finalization renumbers them, tags of freshly
// instantiated molecules are provisional 1-based template indices.
type BondRef struct {
	Type int
	Atom int64
}

// AngleRef is one angle term attached to its central atom.
type AngleRef struct {
	Type  int
	Atoms [3]int64
}

// DihedralRef is one dihedral term attached to its second atom.
type DihedralRef struct {
	Type  int
	Atoms [4]int64
}

// ImproperRef is one improper term attached to its second atom.
type ImproperRef struct {
	Type  int
	Atoms [4]int64
}

// Atoms is one rank's particle store. Arrays are parallel and indexed by
// local index; Nlocal counts owned particles, appended in strict creation
// order. Cross-rank consistency lives in the global counters, which only
// the placement engine's collectives update.
type Atoms struct {
	NTypes      int
	TagEnable   bool
	MolIDEnable bool
	Molecular   bool // per-atom bonded topology arrays in use
	MapEnable   bool

	Nlocal int
	Nghost int

	X        [][3]float64
	Type     []int
	Tag      []int64
	Molecule []int64

	Bonds     [][]BondRef
	Angles    [][]AngleRef
	Dihedrals [][]DihedralRef
	Impropers [][]ImproperRef
	NSpecial  [][3]int
	Special   [][]int64

	// global counters, valid only after finalization
	Natoms     int64
	Nbonds     int64
	Nangles    int64
	Ndihedrals int64
	Nimpropers int64

	tagMap map[int64]int
}

// NewAtoms creates an empty container for a system with ntypes particle
// types. Tags, molecule IDs and topology arrays are enabled up front;
// placement never changes these flags.
func NewAtoms(ntypes int, tags, molIDs, molecular bool) *Atoms {
	return &Atoms{
		NTypes:      ntypes,
		TagEnable:   tags,
		MolIDEnable: molIDs,
		Molecular:   molecular,
		MapEnable:   tags,
	}
}

// Roundup rounds a requested capacity up to the growth chunk.
func Roundup(n int64) int64 {
	if n%growDelta != 0 {
		n = (n/growDelta + 1) * growDelta
	}
	return n
}

// Grow reserves capacity for at least n atoms so later appends do not
// reallocate mid-pass.
func (a *Atoms) Grow(n int) {
	if cap(a.X) >= n {
		return
	}
	a.X = append(make([][3]float64, 0, n), a.X...)
	a.Type = append(make([]int, 0, n), a.Type...)
	a.Tag = append(make([]int64, 0, n), a.Tag...)
	a.Molecule = append(make([]int64, 0, n), a.Molecule...)
	if a.Molecular {
		a.Bonds = append(make([][]BondRef, 0, n), a.Bonds...)
		a.Angles = append(make([][]AngleRef, 0, n), a.Angles...)
		a.Dihedrals = append(make([][]DihedralRef, 0, n), a.Dihedrals...)
		a.Impropers = append(make([][]ImproperRef, 0, n), a.Impropers...)
		a.NSpecial = append(make([][3]int, 0, n), a.NSpecial...)
		a.Special = append(make([][]int64, 0, n), a.Special...)
	}
}

// ClearGhost drops ghost bookkeeping before creation overwrites it.
func (a *Atoms) ClearGhost() {
	a.Nghost = 0
}

// CreateAtom appends one particle of the given type at x with zero tag,
// zero molecule ID and no topology, and returns its local index.
func (a *Atoms) CreateAtom(typ int, x [3]float64) int {
	i := a.Nlocal
	a.X = append(a.X, x)
	a.Type = append(a.Type, typ)
	a.Tag = append(a.Tag, 0)
	a.Molecule = append(a.Molecule, 0)
	if a.Molecular {
		a.Bonds = append(a.Bonds, nil)
		a.Angles = append(a.Angles, nil)
		a.Dihedrals = append(a.Dihedrals, nil)
		a.Impropers = append(a.Impropers, nil)
		a.NSpecial = append(a.NSpecial, [3]int{})
		a.Special = append(a.Special, nil)
	}
	a.Nlocal++
	return i
}

// AddMoleculeAtom attaches template atom m's share of the bonded topology
// to local atom ilocal. Partner references are stored as base plus the
// 1-based template index; creation passes base 0 and finalization adds the
// true identifier offset once it is known. Bonds ride on their first atom,
// angle/dihedral/improper terms on their second.
func (a *Atoms) AddMoleculeAtom(m *MoleculeTemplate, idx, ilocal int, base int64) {
	if !a.Molecular {
		return
	}
	for _, b := range m.Bonds {
		if b.Atoms[0]-1 != idx {
			continue
		}
		a.Bonds[ilocal] = append(a.Bonds[ilocal], BondRef{Type: b.Type, Atom: base + int64(b.Atoms[1])})
	}
	for _, an := range m.Angles {
		if an.Atoms[1]-1 != idx {
			continue
		}
		var ref AngleRef
		ref.Type = an.Type
		for k, t := range an.Atoms {
			ref.Atoms[k] = base + int64(t)
		}
		a.Angles[ilocal] = append(a.Angles[ilocal], ref)
	}
	for _, d := range m.Dihedrals {
		if d.Atoms[1]-1 != idx {
			continue
		}
		var ref DihedralRef
		ref.Type = d.Type
		for k, t := range d.Atoms {
			ref.Atoms[k] = base + int64(t)
		}
		a.Dihedrals[ilocal] = append(a.Dihedrals[ilocal], ref)
	}
	for _, im := range m.Impropers {
		if im.Atoms[1]-1 != idx {
			continue
		}
		var ref ImproperRef
		ref.Type = im.Type
		for k, t := range im.Atoms {
			ref.Atoms[k] = base + int64(t)
		}
		a.Impropers[ilocal] = append(a.Impropers[ilocal], ref)
	}
	if m.HasSpecial() {
		sp := m.Special[idx]
		a.NSpecial[ilocal] = [3]int{len(sp.OneTwo), len(sp.OneThree), len(sp.OneFour)}
		for _, list := range [][]int{sp.OneTwo, sp.OneThree, sp.OneFour} {
			for _, t := range list {
				a.Special[ilocal] = append(a.Special[ilocal], base+int64(t))
			}
		}
	}
}

// TagExtend assigns globally unique, contiguous tags to all untagged local
// atoms: new tags start past the global maximum existing tag and each rank
// claims a window sized by an exclusive prefix scan of its untagged count.
func (a *Atoms) TagExtend(c *Comm) {
	var localMax int64
	var untagged int64
	for i := 0; i < a.Nlocal; i++ {
		if a.Tag[i] > localMax {
			localMax = a.Tag[i]
		}
		if a.Tag[i] == 0 {
			untagged++
		}
	}
	globalMax := c.AllReduceMax(localMax)
	offset := c.ExScan(untagged)
	next := globalMax + offset + 1
	for i := 0; i < a.Nlocal; i++ {
		if a.Tag[i] == 0 {
			a.Tag[i] = next
			next++
		}
	}
}

// TagCheck verifies every local atom carries a valid tag; the failure is
// escalated collectively.
func (a *Atoms) TagCheck(c *Comm) error {
	var err error
	for i := 0; i < a.Nlocal; i++ {
		if a.Tag[i] <= 0 {
			err = fmt.Errorf("atom at local index %d has invalid tag %d", i, a.Tag[i])
			break
		}
	}
	return c.AllError(err)
}

// MapInit rebuilds the tag-to-local-index lookup.
func (a *Atoms) MapInit() {
	if !a.MapEnable {
		return
	}
	a.tagMap = make(map[int64]int, a.Nlocal)
	for i := 0; i < a.Nlocal; i++ {
		a.tagMap[a.Tag[i]] = i
	}
}

// MapFind returns the local index of a tag, or -1 if not owned here.
func (a *Atoms) MapFind(tag int64) int {
	if i, ok := a.tagMap[tag]; ok {
		return i
	}
	return -1
}
