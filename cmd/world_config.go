package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/particle-sim/particle-sim/sim"
)

// WorldConfig is the on-disk definition of the simulation world: the box,
// the lattice, the named regions and the container flags every rank shares.
type WorldConfig struct {
	Box struct {
		Lo        [3]float64 `yaml:"lo"`
		Hi        [3]float64 `yaml:"hi"`
		Tilt      [3]float64 `yaml:"tilt"` // xy, xz, yz
		Periodic  [3]bool    `yaml:"periodic"`
		Dimension int        `yaml:"dimension"`
	} `yaml:"box"`

	Lattice *struct {
		Style  string     `yaml:"style"`
		Scale  float64    `yaml:"scale"`
		Origin [3]float64 `yaml:"origin"`
	} `yaml:"lattice"`

	Types     int  `yaml:"types"`
	Tags      bool `yaml:"tags"`
	MolIDs    bool `yaml:"mol_ids"`
	Molecular bool `yaml:"molecular"`

	Regions []struct {
		ID     string     `yaml:"id"`
		Style  string     `yaml:"style"`
		Lo     [3]float64 `yaml:"lo"`
		Hi     [3]float64 `yaml:"hi"`
		Center [3]float64 `yaml:"center"`
		Radius float64    `yaml:"radius"`
	} `yaml:"regions"`
}

// LoadWorldConfig reads and parses a world definition file.
func LoadWorldConfig(path string) (*WorldConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world config: %w", err)
	}
	var wc WorldConfig
	if err := yaml.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("parse world config: %w", err)
	}
	if wc.Box.Dimension == 0 {
		wc.Box.Dimension = 3
	}
	if wc.Types == 0 {
		wc.Types = 1
	}
	return &wc, nil
}

// BuildBox constructs the simulation box.
func (wc *WorldConfig) BuildBox() (*sim.Box, error) {
	b := &sim.Box{
		Lo:        wc.Box.Lo,
		Hi:        wc.Box.Hi,
		Xy:        wc.Box.Tilt[0],
		Xz:        wc.Box.Tilt[1],
		Yz:        wc.Box.Tilt[2],
		Triclinic: wc.Box.Tilt != [3]float64{},
		Periodic:  wc.Box.Periodic,
		Dimension: wc.Box.Dimension,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// BuildLattice constructs the lattice, or returns nil when none is defined.
func (wc *WorldConfig) BuildLattice() (*sim.Lattice, error) {
	if wc.Lattice == nil {
		return nil, nil
	}
	style, err := sim.ParseLatticeStyle(wc.Lattice.Style)
	if err != nil {
		return nil, err
	}
	scale := wc.Lattice.Scale
	if scale == 0 {
		scale = 1.0
	}
	l, err := sim.NewLattice(style, scale)
	if err != nil {
		return nil, err
	}
	l.Origin = wc.Lattice.Origin
	return l, nil
}

// BuildRegions constructs the named region table.
func (wc *WorldConfig) BuildRegions() (sim.NamedRegions, error) {
	regions := sim.NamedRegions{}
	for _, r := range wc.Regions {
		switch r.Style {
		case "block":
			regions[r.ID] = &sim.BlockRegion{Lo: r.Lo, Hi: r.Hi}
		case "sphere":
			regions[r.ID] = &sim.SphereRegion{Center: r.Center, Radius: r.Radius}
		default:
			return nil, fmt.Errorf("unknown region style %q for region %q", r.Style, r.ID)
		}
	}
	return regions, nil
}
