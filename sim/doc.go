// Package sim implements a distributed particle placement engine for
// spatially decomposed particle simulations.
//
// A World of N ranks runs the identical placement algorithm over disjoint
// sub-boxes of one simulation box and coordinates only through blocking
// collectives (Barrier, AllReduce, ExScan, Exchange). Create populates the
// per-rank particle containers with atoms or rigid molecule instances
// according to one of four strategies (full-box lattice fill, region
// constrained lattice fill, a single explicit point, or bounded-rejection
// random placement) and then reconciles global identifiers, bonded
// topology and particle ownership across all ranks.
//
// Determinism is a design contract with two tiers. Placement decisions
// drawn from shared-sequence random streams (random trial coordinates,
// lattice dilution, site selection) produce bit-identical results
// regardless of how many ranks participate. Molecule orientations come
// from rank-salted streams and are reproducible only for a fixed rank
// count.
package sim
