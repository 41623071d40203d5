package sim

import (
	"fmt"
)

// Style selects the placement strategy.
type Style int

const (
	StyleBox Style = iota
	StyleRegion
	StyleSingle
	StyleRandom
)

func (s Style) String() string {
	switch s {
	case StyleBox:
		return "box"
	case StyleRegion:
		return "region"
	case StyleSingle:
		return "single"
	case StyleRandom:
		return "random"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// ParseStyle maps a strategy name to its Style.
func ParseStyle(name string) (Style, error) {
	switch name {
	case "box":
		return StyleBox, nil
	case "region":
		return StyleRegion, nil
	case "single":
		return StyleSingle, nil
	case "random":
		return StyleRandom, nil
	}
	return 0, fmt.Errorf("unknown placement style %q", name)
}

// Mode selects what gets instantiated at an accepted site.
type Mode int

const (
	ModeAtom Mode = iota
	ModeMolecule
)

func (m Mode) String() string {
	if m == ModeMolecule {
		return "molecule"
	}
	return "atom"
}

// Units selects the coordinate scaling of single/random placements.
type Units int

const (
	UnitsLattice Units = iota
	UnitsBox
)

func (u Units) String() string {
	if u == UnitsBox {
		return "box"
	}
	return "lattice"
}

// DilutionPolicy selects how lattice sites are thinned.
type DilutionPolicy int

const (
	DiluteNone DilutionPolicy = iota
	DiluteRatio
	DiluteSubset
)

// DefaultMaxTry bounds rejection sampling per random instance.
const DefaultMaxTry = 1000

// FixedRotation is a user-specified molecule orientation: a rotation of
// ThetaDeg degrees about Axis.
type FixedRotation struct {
	ThetaDeg float64
	Axis     [3]float64
}

// PlacementSpec is the immutable per-invocation configuration of the
// placement engine. Construct it, call Validate once against the system,
// and do not mutate it afterwards; every rank must hold an identical value.
type PlacementSpec struct {
	Type  int
	Style Style

	Region Region     // required for StyleRegion, optional for StyleRandom
	Coord  [3]float64 // StyleSingle: the one coordinate

	NRandom int64 // StyleRandom: requested instances
	Seed    int64 // StyleRandom: shared trial stream seed

	Mode     Mode
	Molecule *MoleculeTemplate
	MolSeed  int64 // rank-salted orientation stream seed

	BasisTypes []int // lattice fill: per-basis type overrides
	Units      Units
	Remap      bool

	CoordTest CoordTest      // optional conditional-placement predicate
	Rotate    *FixedRotation // nil = random orientation per instance

	Dilution      DilutionPolicy
	DilutionFrac  float64
	DilutionCount int64
	DilutionSeed  int64

	Overlap float64 // minimum separation for StyleRandom, 0 = disabled
	MaxTry  int     // 0 = DefaultMaxTry
}

// EffectiveMaxTry returns the retry bound with the default applied.
func (s *PlacementSpec) EffectiveMaxTry() int {
	if s.MaxTry == 0 {
		return DefaultMaxTry
	}
	return s.MaxTry
}

// Validate checks the spec against the system it will run on. All failures
// are terminal configuration errors; they are deterministic from shared
// state, so every rank fails identically before any collective runs.
func (s *PlacementSpec) Validate(sys *System) error {
	if sys.Box == nil {
		return fmt.Errorf("create before simulation box is defined")
	}
	if err := sys.Box.Validate(); err != nil {
		return err
	}
	if sys.RestartPeratom {
		return fmt.Errorf("cannot create particles after reading restart data with per-particle info")
	}
	dim := sys.Box.Dimension

	if sys.Lattice != nil && sys.Lattice.Style != LatticeNone {
		if err := sys.Lattice.CheckDimension(dim); err != nil {
			return err
		}
	}

	switch s.Style {
	case StyleBox:
	case StyleRegion:
		if s.Region == nil {
			return fmt.Errorf("region style requires a region")
		}
	case StyleSingle:
		if s.CoordTest != nil {
			return fmt.Errorf("cannot combine a coordinate test with single style")
		}
	case StyleRandom:
		if s.NRandom < 0 {
			return fmt.Errorf("random style requires a non-negative count")
		}
		if s.Seed <= 0 {
			return fmt.Errorf("random style requires a positive seed")
		}
	default:
		return fmt.Errorf("unknown placement style %d", int(s.Style))
	}

	if s.Style == StyleBox || s.Style == StyleRegion {
		if sys.Lattice == nil || sys.Lattice.Nbasis() == 0 {
			return fmt.Errorf("cannot create particles with undefined lattice")
		}
	} else if s.Units == UnitsLattice && sys.Lattice == nil {
		return fmt.Errorf("lattice units requested with no lattice defined")
	}

	if s.MaxTry < 0 || (s.MaxTry > 0 && s.Style != StyleRandom) {
		return fmt.Errorf("maxtry can only be used with random style")
	}
	if s.Overlap < 0 || (s.Overlap > 0 && s.Style != StyleRandom) {
		return fmt.Errorf("overlap can only be used with random style")
	}

	switch s.Mode {
	case ModeAtom:
		if s.Type <= 0 || s.Type > sys.Atoms.NTypes {
			return fmt.Errorf("invalid particle type %d in create command", s.Type)
		}
	case ModeMolecule:
		m := s.Molecule
		if m == nil {
			return fmt.Errorf("molecule mode requires a molecule template")
		}
		if err := m.CheckAttributes(); err != nil {
			return err
		}
		if t := s.Type + m.MaxTypeDelta(); t <= 0 || t > sys.Atoms.NTypes {
			return fmt.Errorf("invalid particle type in create mol command")
		}
		if s.MolSeed <= 0 {
			return fmt.Errorf("molecule mode requires a positive orientation seed")
		}
		if m.HasTopology() && !sys.Atoms.TagEnable {
			return fmt.Errorf("molecule template has topology, but system has no particle identifiers")
		}
	default:
		return fmt.Errorf("unknown placement mode %d", int(s.Mode))
	}

	if len(s.BasisTypes) > 0 {
		if s.Style != StyleBox && s.Style != StyleRegion {
			return fmt.Errorf("basis overrides apply only to box and region styles")
		}
		if len(s.BasisTypes) != sys.Lattice.Nbasis() {
			return fmt.Errorf("basis overrides must cover all %d basis points", sys.Lattice.Nbasis())
		}
		for _, t := range s.BasisTypes {
			if t <= 0 || t > sys.Atoms.NTypes {
				return fmt.Errorf("invalid basis type %d in create command", t)
			}
		}
	}

	if r := s.Rotate; r != nil {
		if r.Axis == [3]float64{} {
			return fmt.Errorf("rotation axis must be non-zero")
		}
		if dim == 2 && (r.Axis[0] != 0 || r.Axis[1] != 0) {
			return fmt.Errorf("invalid rotation axis for 2d model")
		}
	}

	switch s.Dilution {
	case DiluteNone:
	case DiluteRatio:
		if s.DilutionFrac <= 0 || s.DilutionFrac > 1 {
			return fmt.Errorf("dilution ratio must be in (0,1]")
		}
		if s.DilutionSeed <= 0 {
			return fmt.Errorf("dilution requires a positive seed")
		}
	case DiluteSubset:
		if s.DilutionCount <= 0 {
			return fmt.Errorf("dilution subset size must be positive")
		}
		if s.DilutionSeed <= 0 {
			return fmt.Errorf("dilution requires a positive seed")
		}
	default:
		return fmt.Errorf("unknown dilution policy %d", int(s.Dilution))
	}
	if s.Dilution != DiluteNone && s.Style != StyleBox && s.Style != StyleRegion {
		return fmt.Errorf("dilution applies only to box and region styles")
	}

	return nil
}
