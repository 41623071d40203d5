package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLatticeStyle(t *testing.T) {
	s, err := ParseLatticeStyle("fcc")
	require.NoError(t, err)
	assert.Equal(t, LatticeFCC, s)

	_, err = ParseLatticeStyle("fccc")
	assert.Error(t, err)
}

func TestNewLattice_BasisCounts(t *testing.T) {
	counts := map[LatticeStyle]int{
		LatticeSC:      1,
		LatticeBCC:     2,
		LatticeFCC:     4,
		LatticeHCP:     4,
		LatticeDiamond: 8,
		LatticeSQ:      1,
		LatticeSQ2:     2,
		LatticeHex:     2,
	}
	for style, want := range counts {
		l, err := NewLattice(style, 1.0)
		require.NoError(t, err)
		assert.Equal(t, want, l.Nbasis(), "style %s", style)
	}
}

func TestNewLattice_RejectsBadScale(t *testing.T) {
	_, err := NewLattice(LatticeSC, 0)
	assert.Error(t, err)
	_, err = NewLattice(LatticeSC, -1.5)
	assert.Error(t, err)
}

func TestNewLattice_HexSpacing(t *testing.T) {
	l, err := NewLattice(LatticeHex, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, l.Spacing[0])
	assert.InDelta(t, 2.0*math.Sqrt(3.0), l.Spacing[1], 1e-12)
}

func TestLattice_CheckDimension(t *testing.T) {
	fcc, _ := NewLattice(LatticeFCC, 1.0)
	assert.NoError(t, fcc.CheckDimension(3))
	assert.Error(t, fcc.CheckDimension(2))

	sq, _ := NewLattice(LatticeSQ, 1.0)
	assert.NoError(t, sq.CheckDimension(2))
	assert.Error(t, sq.CheckDimension(3))
}

func TestLattice_SiteCoord(t *testing.T) {
	l, err := NewLattice(LatticeFCC, 2.0)
	require.NoError(t, err)
	l.Origin = [3]float64{1, 0, 0}

	x := l.SiteCoord(Site{I: 1, J: 0, K: 2, M: 0})
	assert.Equal(t, [3]float64{3, 0, 4}, x)

	// basis point (0.5, 0.5, 0) offsets within the cell
	x = l.SiteCoord(Site{I: 0, J: 0, K: 0, M: 1})
	assert.Equal(t, [3]float64{2, 1, 0}, x)
}

func TestLattice_BBoxFoldsCorners(t *testing.T) {
	l, err := NewLattice(LatticeSC, 2.0)
	require.NoError(t, err)
	l.Origin = [3]float64{1, 1, 1}

	min := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	lo := [3]float64{0, 0, 0}
	hi := [3]float64{5, 5, 5}
	for corner := 0; corner < 8; corner++ {
		var x [3]float64
		for d := 0; d < 3; d++ {
			if corner&(1<<d) != 0 {
				x[d] = hi[d]
			} else {
				x[d] = lo[d]
			}
		}
		l.BBox(x, &min, &max)
	}
	for d := 0; d < 3; d++ {
		assert.InDelta(t, -0.5, min[d], 1e-12)
		assert.InDelta(t, 2.0, max[d], 1e-12)
	}
}
