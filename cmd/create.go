package cmd

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/particle-sim/particle-sim/sim"
)

var (
	// CLI flags for the create subcommand
	grid       []int     // Process grid (px py pz)
	ptype      int       // Particle type (or type offset in molecule mode)
	style      string    // Placement style: box, region, single, random
	regionID   string    // Region id for region style (or random style narrowing)
	coord      []float64 // Coordinate for single style
	nrandom    int64     // Number of random placements
	seed       int64     // Seed for the shared random placement stream
	molPath    string    // Molecule template YAML (empty = atom mode)
	molSeed    int64     // Seed for rank-salted molecule orientation streams
	unitsName  string    // Coordinate units: lattice or box
	remap      bool      // Remap single-style coordinate into the primary image
	rotateDeg  float64   // Fixed rotation angle in degrees
	rotateAxis []float64 // Fixed rotation axis
	basisTypes []int     // Per-basis particle type overrides for lattice fills
	ratio      float64   // Dilution: keep this fraction of lattice sites
	subset     int64     // Dilution: keep exactly this many lattice sites
	subsetSeed int64     // Dilution seed
	overlap    float64   // Minimum separation distance for random style
	maxtry     int       // Max trials per random placement
	outputPath string    // CSV snapshot of created particles
)

// createCmd populates the world with particles according to the flags.
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create particles on a lattice, in a region, at a point, or randomly",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if configPath == "" {
			logrus.Fatalf("No world config provided (use --config)")
		}
		wc, err := LoadWorldConfig(configPath)
		if err != nil {
			logrus.Fatalf("Could not load world config: %v", err)
		}

		box, err := wc.BuildBox()
		if err != nil {
			logrus.Fatalf("Invalid box: %v", err)
		}
		lattice, err := wc.BuildLattice()
		if err != nil {
			logrus.Fatalf("Invalid lattice: %v", err)
		}
		regions, err := wc.BuildRegions()
		if err != nil {
			logrus.Fatalf("Invalid regions: %v", err)
		}

		spec, err := buildSpec(regions)
		if err != nil {
			logrus.Fatalf("Invalid create command: %v", err)
		}

		pgrid := [3]int{grid[0], grid[1], grid[2]}
		nprocs := pgrid[0] * pgrid[1] * pgrid[2]
		logrus.Infof("Running placement on %d ranks (grid %dx%dx%d)",
			nprocs, pgrid[0], pgrid[1], pgrid[2])

		world := sim.NewWorld(nprocs)
		systems := make([]*sim.System, nprocs)
		var mu sync.Mutex

		err = world.Run(func(c *sim.Comm) error {
			sub, err := sim.Decompose(box, pgrid, c.Rank())
			if err != nil {
				return err
			}
			sys := &sim.System{
				Box:     box,
				Lattice: lattice,
				Atoms:   sim.NewAtoms(wc.Types, wc.Tags, wc.MolIDs, wc.Molecular),
				Sub:     sub,
			}
			mu.Lock()
			systems[c.Rank()] = sys
			mu.Unlock()
			_, err = sim.Create(c, sys, spec)
			return err
		})
		if err != nil {
			logrus.Fatalf("Placement failed: %v", err)
		}

		if outputPath != "" {
			if err := writeSnapshot(outputPath, systems); err != nil {
				logrus.Fatalf("Could not write snapshot: %v", err)
			}
			logrus.Infof("Wrote particle snapshot to %s", outputPath)
		}
	},
}

// buildSpec assembles the placement spec from CLI flags.
func buildSpec(regions sim.NamedRegions) (*sim.PlacementSpec, error) {
	st, err := sim.ParseStyle(style)
	if err != nil {
		return nil, err
	}

	spec := &sim.PlacementSpec{
		Type:    ptype,
		Style:   st,
		NRandom: nrandom,
		Seed:    seed,
		Remap:   remap,
		Overlap: overlap,
		MaxTry:  maxtry,
	}
	copy(spec.Coord[:], coord)

	if unitsName == "box" {
		spec.Units = sim.UnitsBox
	}

	if regionID != "" {
		r, err := regions.Get(regionID)
		if err != nil {
			return nil, err
		}
		spec.Region = r
	}

	if molPath != "" {
		tmpl, err := sim.LoadMoleculeTemplate(molPath)
		if err != nil {
			return nil, err
		}
		spec.Mode = sim.ModeMolecule
		spec.Molecule = tmpl
		spec.MolSeed = molSeed
	}

	if len(basisTypes) > 0 {
		spec.BasisTypes = basisTypes
	}

	if len(rotateAxis) == 3 {
		var axis [3]float64
		copy(axis[:], rotateAxis)
		spec.Rotate = &sim.FixedRotation{ThetaDeg: rotateDeg, Axis: axis}
	}

	if ratio > 0 {
		spec.Dilution = sim.DiluteRatio
		spec.DilutionFrac = ratio
		spec.DilutionSeed = subsetSeed
	} else if subset > 0 {
		spec.Dilution = sim.DiluteSubset
		spec.DilutionCount = subset
		spec.DilutionSeed = subsetSeed
	}

	return spec, nil
}

func init() {
	createCmd.Flags().IntSliceVar(&grid, "grid", []int{1, 1, 1}, "Process grid: px,py,pz")
	createCmd.Flags().IntVar(&ptype, "type", 1, "Particle type (type offset in molecule mode)")
	createCmd.Flags().StringVar(&style, "style", "box", "Placement style: box, region, single, random")
	createCmd.Flags().StringVar(&regionID, "region", "", "Region id (required for region style)")
	createCmd.Flags().Float64SliceVar(&coord, "coord", []float64{0, 0, 0}, "Coordinate for single style")
	createCmd.Flags().Int64Var(&nrandom, "nrandom", 0, "Number of random placements")
	createCmd.Flags().Int64Var(&seed, "seed", 1, "Seed for random placement")
	createCmd.Flags().StringVar(&molPath, "mol", "", "Molecule template YAML file")
	createCmd.Flags().Int64Var(&molSeed, "molseed", 1, "Seed for molecule orientations")
	createCmd.Flags().StringVar(&unitsName, "units", "lattice", "Coordinate units: lattice or box")
	createCmd.Flags().BoolVar(&remap, "remap", false, "Remap single-style coordinate into the box")
	createCmd.Flags().Float64Var(&rotateDeg, "rotate", 0, "Fixed molecule rotation angle (degrees)")
	createCmd.Flags().Float64SliceVar(&rotateAxis, "axis", nil, "Fixed molecule rotation axis")
	createCmd.Flags().IntSliceVar(&basisTypes, "basis", nil, "Per-basis particle types for lattice fills")
	createCmd.Flags().Float64Var(&ratio, "ratio", 0, "Keep this fraction of lattice sites")
	createCmd.Flags().Int64Var(&subset, "subset", 0, "Keep exactly this many lattice sites")
	createCmd.Flags().Int64Var(&subsetSeed, "subsetseed", 1, "Dilution seed")
	createCmd.Flags().Float64Var(&overlap, "overlap", 0, "Minimum separation for random placements")
	createCmd.Flags().IntVar(&maxtry, "maxtry", 0, "Max trials per random placement (0 = default)")
	createCmd.Flags().StringVar(&outputPath, "output", "", "Write a CSV snapshot of all particles")
	rootCmd.AddCommand(createCmd)
}
