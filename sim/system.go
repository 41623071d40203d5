package sim

// System is one rank's view of the simulation: the shared box, lattice and
// counters plus the rank-private subdomain and particle store. Box, Lattice
// and configuration flags must be identical on every rank; Sub and Atoms
// are rank-private.
type System struct {
	Box     *Box
	Lattice *Lattice
	Atoms   *Atoms
	Sub     Subdomain

	// RestartPeratom marks that per-particle restart state was read and
	// fresh creation would conflict with it.
	RestartPeratom bool

	// PerAtomInit, when set, initializes auxiliary per-particle data for
	// newly created local atoms in [first, last).
	PerAtomInit func(first, last int)
}
