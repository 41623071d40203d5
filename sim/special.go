package sim

import (
	"sort"
)

// BuildSpecial rebuilds the 1-2, 1-3 and 1-4 special-neighbor lists of
// every local atom from the system-wide bond topology. Bond pairs are
// gathered from all ranks, since a bonded partner may live anywhere after
// migration. Each shell excludes the atom itself and all closer shells,
// and is stored sorted by tag so rebuilt lists are deterministic.
func BuildSpecial(c *Comm, sys *System) {
	a := sys.Atoms
	if !a.Molecular {
		return
	}

	var flat []int64
	for i := 0; i < a.Nlocal; i++ {
		for _, b := range a.Bonds[i] {
			flat = append(flat, a.Tag[i], b.Atom)
		}
	}
	all := c.AllGather(flat)

	adj := make(map[int64][]int64)
	for k := 0; k+1 < len(all); k += 2 {
		t1, t2 := all[k], all[k+1]
		adj[t1] = append(adj[t1], t2)
		adj[t2] = append(adj[t2], t1)
	}

	for i := 0; i < a.Nlocal; i++ {
		tag := a.Tag[i]

		seen := map[int64]bool{tag: true}
		shell := func(from []int64) []int64 {
			found := make(map[int64]bool)
			for _, v := range from {
				for _, w := range adj[v] {
					if !seen[w] {
						found[w] = true
					}
				}
			}
			out := make([]int64, 0, len(found))
			for w := range found {
				out = append(out, w)
				seen[w] = true
			}
			sort.Slice(out, func(x, y int) bool { return out[x] < out[y] })
			return out
		}

		one2 := shell([]int64{tag})
		one3 := shell(one2)
		one4 := shell(one3)

		a.NSpecial[i] = [3]int{len(one2), len(one3), len(one4)}
		a.Special[i] = a.Special[i][:0]
		a.Special[i] = append(a.Special[i], one2...)
		a.Special[i] = append(a.Special[i], one3...)
		a.Special[i] = append(a.Special[i], one4...)
	}
}
