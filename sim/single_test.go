package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSingle_ExactlyOneRankEmits(t *testing.T) {
	opts := worldOpts{
		grid:   [3]int{2, 2, 2},
		box:    orthoBox([3]float64{0, 0, 0}, [3]float64{8, 8, 8}),
		ntypes: 1,
		tags:   true,
	}
	spec := &PlacementSpec{
		Type:  1,
		Style: StyleSingle,
		Units: UnitsBox,
		Coord: [3]float64{3.5, 3.5, 3.5},
	}
	systems, summaries, err := runCreate(opts, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, totalAtoms(systems))
	for _, sum := range summaries {
		assert.Equal(t, int64(1), sum.Created)
	}
	xs := allPositions(systems)
	require.Len(t, xs, 1)
	assert.Equal(t, [3]float64{3.5, 3.5, 3.5}, xs[0])
}

func TestCreateSingle_SubdomainFacePlacedOnce(t *testing.T) {
	opts := worldOpts{
		grid:   [3]int{2, 1, 1},
		box:    orthoBox([3]float64{0, 0, 0}, [3]float64{8, 8, 8}),
		ntypes: 1,
		tags:   true,
	}
	// exactly on the internal face shared by both ranks
	spec := &PlacementSpec{
		Type:  1,
		Style: StyleSingle,
		Units: UnitsBox,
		Coord: [3]float64{4.0, 1.0, 1.0},
	}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, totalAtoms(systems))
}

func TestCreateSingle_RemapWrapsIntoBox(t *testing.T) {
	opts := worldOpts{
		grid:   [3]int{1, 1, 1},
		box:    orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 4}),
		ntypes: 1,
		tags:   true,
	}
	spec := &PlacementSpec{
		Type:  1,
		Style: StyleSingle,
		Units: UnitsBox,
		Coord: [3]float64{5.0, 1.0, 1.0},
		Remap: true,
	}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	xs := allPositions(systems)
	require.Len(t, xs, 1)
	assert.Equal(t, [3]float64{1.0, 1.0, 1.0}, xs[0])
}

func TestCreateSingle_OutsideBoxWithoutRemapDropped(t *testing.T) {
	opts := worldOpts{
		grid:   [3]int{1, 1, 1},
		box:    orthoBox([3]float64{0, 0, 0}, [3]float64{4, 4, 4}),
		ntypes: 1,
		tags:   true,
	}
	spec := &PlacementSpec{
		Type:  1,
		Style: StyleSingle,
		Units: UnitsBox,
		Coord: [3]float64{5.0, 1.0, 1.0},
	}
	systems, summaries, err := runCreate(opts, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, totalAtoms(systems))
	assert.Equal(t, int64(0), summaries[0].Created)
}

func TestCreateSingle_LatticeUnitsScaleCoord(t *testing.T) {
	opts := worldOpts{
		grid:    [3]int{1, 1, 1},
		box:     orthoBox([3]float64{0, 0, 0}, [3]float64{8, 8, 8}),
		lattice: nil,
		ntypes:  1,
		tags:    true,
	}
	l, err := NewLattice(LatticeSC, 2.0)
	require.NoError(t, err)
	opts.lattice = l
	spec := &PlacementSpec{
		Type:  1,
		Style: StyleSingle,
		Units: UnitsLattice,
		Coord: [3]float64{1.5, 1.0, 0.5},
	}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	xs := allPositions(systems)
	require.Len(t, xs, 1)
	assert.Equal(t, [3]float64{3.0, 2.0, 1.0}, xs[0])
}

func TestCreateSingle_TriclinicUpperFaceClampsToLower(t *testing.T) {
	box := &Box{
		Lo:        [3]float64{0, 0, 0},
		Hi:        [3]float64{4, 4, 4},
		Xy:        1.0,
		Triclinic: true,
		Periodic:  [3]bool{true, true, true},
		Dimension: 3,
	}
	opts := worldOpts{
		grid:   [3]int{1, 1, 1},
		box:    box,
		ntypes: 1,
		tags:   true,
	}
	// remapping floor arithmetic can leave lamda exactly at 1.0; the single
	// style clamps that back to the lower face instead of dropping the atom
	spec := &PlacementSpec{
		Type:  1,
		Style: StyleSingle,
		Units: UnitsBox,
		Coord: [3]float64{1.0, 4.0, 0.0},
		Remap: true,
	}
	systems, _, err := runCreate(opts, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, totalAtoms(systems))
	xs := allPositions(systems)
	require.Len(t, xs, 1)
	assert.InDelta(t, 0.0, xs[0][1], 1e-12)
}

func TestCreateSingle_Molecule(t *testing.T) {
	opts := worldOpts{
		grid:      [3]int{1, 1, 1},
		box:       orthoBox([3]float64{0, 0, 0}, [3]float64{10, 10, 10}),
		ntypes:    2,
		tags:      true,
		molIDs:    true,
		molecular: true,
	}
	m := chainTemplate(3, 1.0)
	spec := &PlacementSpec{
		Type:     1,
		Style:    StyleSingle,
		Units:    UnitsBox,
		Coord:    [3]float64{5, 5, 5},
		Mode:     ModeMolecule,
		Molecule: m,
		MolSeed:  12345,
		Rotate:   &FixedRotation{ThetaDeg: 0, Axis: [3]float64{0, 0, 1}},
	}
	systems, summaries, err := runCreate(opts, spec)
	require.NoError(t, err)
	assert.Equal(t, 3, totalAtoms(systems))
	assert.Equal(t, int64(3), summaries[0].Created)

	sys := systems[0]
	assert.Equal(t, int64(2), sys.Atoms.Nbonds)
	// every atom belongs to the same (and only) molecule
	for i := 0; i < sys.Atoms.Nlocal; i++ {
		assert.Equal(t, int64(1), sys.Atoms.Molecule[i])
	}
	// an unrotated chain keeps its spacing about the center
	xs := allPositions(systems)
	require.Len(t, xs, 3)
	assert.InDelta(t, 4.0, xs[0][0], 1e-12)
	assert.InDelta(t, 5.0, xs[1][0], 1e-12)
	assert.InDelta(t, 6.0, xs[2][0], 1e-12)
}
