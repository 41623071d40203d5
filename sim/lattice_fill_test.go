package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latticeFillRun(t *testing.T, grid [3]int, style LatticeStyle, spec *PlacementSpec) ([]*System, []*Summary) {
	t.Helper()
	opts := worldOpts{
		grid:    grid,
		box:     orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 4}),
		lattice: testLattice(t, style, 1.0),
		ntypes:  2,
		tags:    true,
	}
	systems, summaries, err := runCreate(opts, spec)
	require.NoError(t, err)
	return systems, summaries
}

func TestCreateLattice_SCClosedFormCount(t *testing.T) {
	// a unit sc lattice in a fully periodic 4x4x4 box holds exactly 4^3 sites
	spec := &PlacementSpec{Type: 1, Style: StyleBox}
	systems, summaries := latticeFillRun(t, [3]int{1, 1, 1}, LatticeSC, spec)
	assert.Equal(t, 64, totalAtoms(systems))
	assert.Equal(t, int64(64), summaries[0].Created)
}

func TestCreateLattice_BoundarySitesPlacedOnce(t *testing.T) {
	spec := &PlacementSpec{Type: 1, Style: StyleBox}
	for _, grid := range [][3]int{{2, 1, 1}, {2, 2, 1}, {2, 2, 2}} {
		systems, _ := latticeFillRun(t, grid, LatticeSC, spec)
		assert.Equal(t, 64, totalAtoms(systems), "grid %v", grid)

		seen := map[string]int{}
		for _, x := range allPositions(systems) {
			seen[posKey(x)]++
		}
		for key, n := range seen {
			assert.Equal(t, 1, n, "site %s placed %d times", key, n)
		}
	}
}

func TestCreateLattice_PositionsMatchAcrossDecompositions(t *testing.T) {
	spec := &PlacementSpec{Type: 1, Style: StyleBox}
	serialSys, _ := latticeFillRun(t, [3]int{1, 1, 1}, LatticeFCC, spec)
	parallelSys, _ := latticeFillRun(t, [3]int{2, 2, 1}, LatticeFCC, spec)

	serial := allPositions(serialSys)
	parallel := allPositions(parallelSys)
	require.Equal(t, len(serial), len(parallel))
	assert.Equal(t, 256, len(serial)) // 4 basis points per cell
	for i := range serial {
		assert.Equal(t, serial[i], parallel[i])
	}
}

func TestCreateLattice_TagsContiguous(t *testing.T) {
	spec := &PlacementSpec{Type: 1, Style: StyleBox}
	systems, _ := latticeFillRun(t, [3]int{2, 1, 1}, LatticeSC, spec)
	tags := allTags(systems)
	require.Len(t, tags, 64)
	for i, tag := range tags {
		assert.Equal(t, int64(i+1), tag)
	}
}

func TestCreateLattice_RegionStyle(t *testing.T) {
	region := &SphereRegion{Center: [3]float64{2, 2, 2}, Radius: 1.0}
	spec := &PlacementSpec{Type: 1, Style: StyleRegion, Region: region}
	systems, _ := latticeFillRun(t, [3]int{2, 1, 1}, LatticeSC, spec)
	// the unit sphere about (2,2,2) holds its center plus the 6 face sites
	assert.Equal(t, 7, totalAtoms(systems))
	for _, x := range allPositions(systems) {
		assert.True(t, region.Contains(x[0], x[1], x[2]))
	}
}

func TestCreateLattice_BasisTypeOverrides(t *testing.T) {
	spec := &PlacementSpec{Type: 1, Style: StyleBox, BasisTypes: []int{1, 2}}
	systems, _ := latticeFillRun(t, [3]int{1, 1, 1}, LatticeBCC, spec)
	require.Equal(t, 128, totalAtoms(systems))

	counts := map[int]int{}
	for _, sys := range systems {
		for i := 0; i < sys.Atoms.Nlocal; i++ {
			counts[sys.Atoms.Type[i]]++
		}
	}
	assert.Equal(t, 64, counts[1]) // corner sites
	assert.Equal(t, 64, counts[2]) // cell-center sites
}

func TestCreateLattice_CoordTestFilters(t *testing.T) {
	// keep only the lower half along x
	spec := &PlacementSpec{
		Type:      1,
		Style:     StyleBox,
		CoordTest: CoordTestFunc(func(x, y, z float64) (bool, error) { return x < 2.0, nil }),
	}
	systems, _ := latticeFillRun(t, [3]int{2, 1, 1}, LatticeSC, spec)
	assert.Equal(t, 32, totalAtoms(systems))
	for _, x := range allPositions(systems) {
		assert.Less(t, x[0], 2.0)
	}
}

func TestCreateLattice_DilutionSubsetExactCount(t *testing.T) {
	spec := &PlacementSpec{
		Type:          1,
		Style:         StyleBox,
		Dilution:      DiluteSubset,
		DilutionCount: 10,
		DilutionSeed:  4321,
	}
	systems, summaries := latticeFillRun(t, [3]int{2, 2, 1}, LatticeSC, spec)
	assert.Equal(t, 10, totalAtoms(systems))
	assert.Equal(t, int64(10), summaries[0].Created)
}

func TestCreateLattice_DilutionDeterministicAcrossDecompositions(t *testing.T) {
	spec := &PlacementSpec{
		Type:          1,
		Style:         StyleBox,
		Dilution:      DiluteSubset,
		DilutionCount: 17,
		DilutionSeed:  999,
	}
	serialSys, _ := latticeFillRun(t, [3]int{1, 1, 1}, LatticeSC, spec)
	serial := allPositions(serialSys)
	require.Len(t, serial, 17)

	// index i must name the same physical site under every decomposition,
	// so the selected set cannot depend on the rank grid
	for _, grid := range [][3]int{{2, 1, 1}, {1, 2, 2}, {2, 2, 2}} {
		parallelSys, _ := latticeFillRun(t, grid, LatticeSC, spec)
		parallel := allPositions(parallelSys)
		require.Equal(t, len(serial), len(parallel), "grid %v", grid)
		for i := range serial {
			assert.Equal(t, serial[i], parallel[i], "grid %v", grid)
		}
	}
}

func TestCreateLattice_DilutionRatio(t *testing.T) {
	spec := &PlacementSpec{
		Type:         1,
		Style:        StyleBox,
		Dilution:     DiluteRatio,
		DilutionFrac: 0.25,
		DilutionSeed: 8,
	}
	systems, _ := latticeFillRun(t, [3]int{1, 1, 1}, LatticeSC, spec)
	assert.Equal(t, 16, totalAtoms(systems)) // 0.25 of 64 sites
}

func TestCreateLattice_DilutionSubsetTooLarge(t *testing.T) {
	spec := &PlacementSpec{
		Type:          1,
		Style:         StyleBox,
		Dilution:      DiluteSubset,
		DilutionCount: 100000,
		DilutionSeed:  8,
	}
	opts := worldOpts{
		grid:    [3]int{1, 1, 1},
		box:     orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 4}),
		lattice: testLattice(t, LatticeSC, 1.0),
		ntypes:  2,
		tags:    true,
	}
	_, _, err := runCreate(opts, spec)
	require.Error(t, err)
	assert.ErrorContains(t, err, "exceeds")
}

func TestCreateLattice_2d(t *testing.T) {
	box := orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 0})
	box.Lo[2] = -0.5
	box.Hi[2] = 0.5
	box.Dimension = 2
	opts := worldOpts{
		grid:    [3]int{2, 1, 1},
		box:     box,
		lattice: testLattice(t, LatticeSQ, 1.0),
		ntypes:  2,
		tags:    true,
	}
	spec := &PlacementSpec{Type: 1, Style: StyleBox}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	assert.Equal(t, 16, totalAtoms(systems))
	for _, x := range allPositions(systems) {
		assert.Equal(t, 0.0, x[2])
	}
}

func TestCreateLattice_TriclinicIntegerTilt(t *testing.T) {
	box := &Box{
		Lo:        [3]float64{0, 0, 0},
		Hi:        [3]float64{4, 4, 4},
		Xy:        1.0,
		Triclinic: true,
		Periodic:  [3]bool{true, true, true},
		Dimension: 3,
	}
	opts := worldOpts{
		grid:    [3]int{2, 1, 1},
		box:     box,
		lattice: testLattice(t, LatticeSC, 1.0),
		ntypes:  2,
		tags:    true,
	}
	spec := &PlacementSpec{Type: 1, Style: StyleBox}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	// an integer tilt shears the unit lattice onto itself, so the sheared
	// cell still holds exactly 4^3 sites
	assert.Equal(t, 64, totalAtoms(systems))
}

func TestCreateLattice_MoleculeFill(t *testing.T) {
	opts := worldOpts{
		grid:      [3]int{2, 1, 1},
		box:       orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 4}),
		lattice:   testLattice(t, LatticeSC, 2.0),
		ntypes:    2,
		tags:      true,
		molIDs:    true,
		molecular: true,
	}
	m := chainTemplate(3, 0.2)
	spec := &PlacementSpec{
		Type:     1,
		Style:    StyleBox,
		Mode:     ModeMolecule,
		Molecule: m,
		MolSeed:  2718,
	}
	systems, summaries, err := runCreate(opts, spec)
	require.NoError(t, err)

	// 2^3 sites, one 3-atom instance each
	assert.Equal(t, 24, totalAtoms(systems))
	assert.Equal(t, int64(24), summaries[0].Created)

	var nbonds int64
	molIDs := map[int64]int{}
	for _, sys := range systems {
		nbonds = sys.Atoms.Nbonds
		for i := 0; i < sys.Atoms.Nlocal; i++ {
			molIDs[sys.Atoms.Molecule[i]]++
		}
	}
	assert.Equal(t, int64(16), nbonds) // 2 bonds per instance
	assert.Len(t, molIDs, 8)
	for id, n := range molIDs {
		assert.Equal(t, 3, n, "molecule %d", id)
		assert.Greater(t, id, int64(0))
	}

	tags := allTags(systems)
	require.Len(t, tags, 24)
	for i, tag := range tags {
		assert.Equal(t, int64(i+1), tag)
	}
}

func TestCreateLattice_MoleculeBondPartnersWithinInstance(t *testing.T) {
	opts := worldOpts{
		grid:      [3]int{1, 1, 1},
		box:       orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 4}),
		lattice:   testLattice(t, LatticeSC, 2.0),
		ntypes:    2,
		tags:      true,
		molIDs:    true,
		molecular: true,
	}
	m := chainTemplate(3, 0.2)
	spec := &PlacementSpec{
		Type:     1,
		Style:    StyleBox,
		Mode:     ModeMolecule,
		Molecule: m,
		MolSeed:  5,
	}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	sys := systems[0]

	for i := 0; i < sys.Atoms.Nlocal; i++ {
		for _, b := range sys.Atoms.Bonds[i] {
			j := sys.Atoms.MapFind(b.Atom)
			require.GreaterOrEqual(t, j, 0, "bond partner %d not local", b.Atom)
			// partners of one instance share the molecule identifier
			assert.Equal(t, sys.Atoms.Molecule[i], sys.Atoms.Molecule[j])
		}
	}
}
