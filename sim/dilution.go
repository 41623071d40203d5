package sim

// SelectSubset chooses a uniformly random subset of size nTarget from a
// virtual sequence of nTotal candidate sites and returns the accept flags
// for the window [localOffset, localOffset+localCount) of that sequence.
//
// Every caller running the identical order-preserving selection sampling
// pass with the same seed agrees on the accept set without exchanging it,
// and the same seed reproduces the same flags bit for bit. Flag position t
// refers to position t of the virtual sequence, so the caller must index
// candidates in an order all participants share; the lattice fill walks
// the whole domain in canonical site order and passes the full range here,
// then inserts only the accepted sites it owns. A flag sequence can also
// be assembled in windowed pieces, the union of all windows holding
// exactly nTarget accepts.
func SelectSubset(seed, nTarget, nTotal, localOffset, localCount int64) []bool {
	flags := make([]bool, localCount)
	if nTotal <= 0 || nTarget <= 0 {
		return flags
	}
	stream := NewSharedStream(seed)
	var chosen int64
	for t := int64(0); t < nTotal && chosen < nTarget; t++ {
		// probability of choosing site t given choices so far
		p := float64(nTarget-chosen) / float64(nTotal-t)
		if stream.Uniform() < p {
			if t >= localOffset && t < localOffset+localCount {
				flags[t-localOffset] = true
			}
			chosen++
		}
	}
	return flags
}
