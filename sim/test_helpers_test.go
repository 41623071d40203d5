package sim

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// worldOpts describes the fixture world most placement tests run in.
type worldOpts struct {
	grid      [3]int
	box       *Box
	lattice   *Lattice
	ntypes    int
	tags      bool
	molIDs    bool
	molecular bool
}

// orthoBox returns a fully periodic orthogonal box.
func orthoBox(lo, hi [3]float64) *Box {
	return &Box{
		Lo:        lo,
		Hi:        hi,
		Periodic:  [3]bool{true, true, true},
		Dimension: 3,
	}
}

// testLattice builds a lattice or fails the test.
func testLattice(t *testing.T, style LatticeStyle, scale float64) *Lattice {
	t.Helper()
	l, err := NewLattice(style, scale)
	if err != nil {
		t.Fatalf("NewLattice(%v, %v): %v", style, scale, err)
	}
	return l
}

// runCreate executes one placement invocation across all ranks of a fresh
// world and returns the per-rank systems and summaries. Assertion failures
// must not happen inside the rank function (a dead rank deadlocks its
// peers), so errors are returned instead.
func runCreate(opts worldOpts, spec *PlacementSpec) ([]*System, []*Summary, error) {
	nprocs := opts.grid[0] * opts.grid[1] * opts.grid[2]
	world := NewWorld(nprocs)
	systems := make([]*System, nprocs)
	summaries := make([]*Summary, nprocs)
	var mu sync.Mutex

	err := world.Run(func(c *Comm) error {
		sub, err := Decompose(opts.box, opts.grid, c.Rank())
		if err != nil {
			return err
		}
		sys := &System{
			Box:     opts.box,
			Lattice: opts.lattice,
			Atoms:   NewAtoms(opts.ntypes, opts.tags, opts.molIDs, opts.molecular),
			Sub:     sub,
		}
		mu.Lock()
		systems[c.Rank()] = sys
		mu.Unlock()
		sum, err := Create(c, sys, spec)
		if err != nil {
			return err
		}
		mu.Lock()
		summaries[c.Rank()] = sum
		mu.Unlock()
		return nil
	})
	return systems, summaries, err
}

// totalAtoms sums the local atom counts of all ranks.
func totalAtoms(systems []*System) int {
	n := 0
	for _, sys := range systems {
		if sys != nil {
			n += sys.Atoms.Nlocal
		}
	}
	return n
}

// allPositions returns every created position across all ranks, sorted
// lexicographically so runs with different decompositions compare equal.
func allPositions(systems []*System) [][3]float64 {
	var xs [][3]float64
	for _, sys := range systems {
		if sys == nil {
			continue
		}
		xs = append(xs, sys.Atoms.X[:sys.Atoms.Nlocal]...)
	}
	sort.Slice(xs, func(a, b int) bool {
		for d := 0; d < 3; d++ {
			if xs[a][d] != xs[b][d] {
				return xs[a][d] < xs[b][d]
			}
		}
		return false
	})
	return xs
}

// allTags returns every assigned tag across all ranks, sorted.
func allTags(systems []*System) []int64 {
	var tags []int64
	for _, sys := range systems {
		if sys == nil {
			continue
		}
		tags = append(tags, sys.Atoms.Tag[:sys.Atoms.Nlocal]...)
	}
	sort.Slice(tags, func(a, b int) bool { return tags[a] < tags[b] })
	return tags
}

// posKey quantizes a position so lattice sites compare reliably.
func posKey(x [3]float64) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f", x[0], x[1], x[2])
}

// chainTemplate builds an n-atom linear chain with a bond between each
// consecutive pair, spaced dx apart along x.
func chainTemplate(n int, dx float64) *MoleculeTemplate {
	m := &MoleculeTemplate{Name: fmt.Sprintf("chain%d", n)}
	for i := 0; i < n; i++ {
		m.Coords = append(m.Coords, r3.Vec{X: float64(i) * dx})
		m.Types = append(m.Types, 1)
	}
	for i := 1; i < n; i++ {
		m.Bonds = append(m.Bonds, Bond{Type: 1, Atoms: [2]int{i, i + 1}})
	}
	m.ComputeCenter()
	return m
}
