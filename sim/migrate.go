package sim

// Migrant is one particle record in flight between ranks: position, type,
// identifiers and the bonded topology that rides with the particle.
type Migrant struct {
	X        [3]float64
	Type     int
	Tag      int64
	Molecule int64

	Bonds     []BondRef
	Angles    []AngleRef
	Dihedrals []DihedralRef
	Impropers []ImproperRef
	NSpecial  [3]int
	Special   []int64
}

// extract packages local atom i as a migration record.
func (a *Atoms) extract(i int) Migrant {
	rec := Migrant{
		X:        a.X[i],
		Type:     a.Type[i],
		Tag:      a.Tag[i],
		Molecule: a.Molecule[i],
	}
	if a.Molecular {
		rec.Bonds = a.Bonds[i]
		rec.Angles = a.Angles[i]
		rec.Dihedrals = a.Dihedrals[i]
		rec.Impropers = a.Impropers[i]
		rec.NSpecial = a.NSpecial[i]
		rec.Special = a.Special[i]
	}
	return rec
}

// insertMigrant appends a migration record as a local atom.
func (a *Atoms) insertMigrant(rec Migrant) {
	i := a.CreateAtom(rec.Type, rec.X)
	a.Tag[i] = rec.Tag
	a.Molecule[i] = rec.Molecule
	if a.Molecular {
		a.Bonds[i] = rec.Bonds
		a.Angles[i] = rec.Angles
		a.Dihedrals[i] = rec.Dihedrals
		a.Impropers[i] = rec.Impropers
		a.NSpecial[i] = rec.NSpecial
		a.Special[i] = rec.Special
	}
}

// MigrateAtoms remaps every local particle into the primary periodic image
// and relocates each to the rank whose sub-box contains it, routing through
// Owner and therefore requiring the uniform brick decomposition. Retained
// and received particles both keep their relative creation order (received
// records are grouped by source rank), which downstream topology handling
// relies on.
func MigrateAtoms(c *Comm, sys *System) {
	a := sys.Atoms
	box := sys.Box

	for i := 0; i < a.Nlocal; i++ {
		box.Remap(&a.X[i])
	}

	send := make([][]Migrant, c.Size())
	var keep []Migrant
	for i := 0; i < a.Nlocal; i++ {
		owner := Owner(box, sys.Sub.Grid, a.X[i])
		if owner == c.Rank() {
			keep = append(keep, a.extract(i))
		} else {
			send[owner] = append(send[owner], a.extract(i))
		}
	}

	recv := c.Exchange(send)

	a.truncate()
	for _, rec := range keep {
		a.insertMigrant(rec)
	}
	for _, rec := range recv {
		a.insertMigrant(rec)
	}
}

// truncate drops all local atoms while keeping reserved capacity.
func (a *Atoms) truncate() {
	a.X = a.X[:0]
	a.Type = a.Type[:0]
	a.Tag = a.Tag[:0]
	a.Molecule = a.Molecule[:0]
	if a.Molecular {
		a.Bonds = a.Bonds[:0]
		a.Angles = a.Angles[:0]
		a.Dihedrals = a.Dihedrals[:0]
		a.Impropers = a.Impropers[:0]
		a.NSpecial = a.NSpecial[:0]
		a.Special = a.Special[:0]
	}
	a.Nlocal = 0
}
