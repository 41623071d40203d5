package sim

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Bond is one bonded pair within a molecule template. Atom indices are
// 1-based template indices.
type Bond struct {
	Type  int
	Atoms [2]int
}

// Angle is one three-body term within a template.
type Angle struct {
	Type  int
	Atoms [3]int
}

// Dihedral is one four-body torsion term within a template.
type Dihedral struct {
	Type  int
	Atoms [4]int
}

// Improper is one four-body improper term within a template.
type Improper struct {
	Type  int
	Atoms [4]int
}

// SpecialLists holds one template atom's precomputed special neighbors as
// 1-based template indices, split by shell.
type SpecialLists struct {
	OneTwo   []int
	OneThree []int
	OneFour  []int
}

// MoleculeTemplate is a rigid molecule used for placement: a fixed local
// geometry plus bonded topology. Instances are placed by rotating Offsets
// about the geometric center and translating to an accepted site.
//
// Per-offset Types are deltas added to the placement's base type. MolIDs,
// when present, partition the template into several sub-molecules that each
// receive their own molecule identifier per instance.
type MoleculeTemplate struct {
	Name      string
	Coords    []r3.Vec
	Types     []int
	MolIDs    []int
	NSets     int
	Bonds     []Bond
	Angles    []Angle
	Dihedrals []Dihedral
	Impropers []Improper
	Special   []SpecialLists

	// derived by ComputeCenter
	Center  r3.Vec
	Offsets []r3.Vec
	Radius  float64
}

// NAtoms returns the number of atoms in the template.
func (m *MoleculeTemplate) NAtoms() int { return len(m.Coords) }

// NMolecules returns the number of sub-molecules the template declares,
// at least 1.
func (m *MoleculeTemplate) NMolecules() int {
	n := 1
	for _, id := range m.MolIDs {
		if id > n {
			n = id
		}
	}
	return n
}

// HasBonds reports whether the template carries any explicit bonds.
func (m *MoleculeTemplate) HasBonds() bool { return len(m.Bonds) > 0 }

// HasSpecial reports whether the template supplies precomputed special lists.
func (m *MoleculeTemplate) HasSpecial() bool { return len(m.Special) > 0 }

// HasTopology reports whether any bonded topology kind is present.
func (m *MoleculeTemplate) HasTopology() bool {
	return len(m.Bonds) > 0 || len(m.Angles) > 0 || len(m.Dihedrals) > 0 || len(m.Impropers) > 0
}

// MaxTypeDelta returns the largest per-offset type delta.
func (m *MoleculeTemplate) MaxTypeDelta() int {
	max := 0
	for _, t := range m.Types {
		if t > max {
			max = t
		}
	}
	return max
}

// ComputeCenter derives the geometric center, the per-atom offsets from it,
// and the bounding radius. Must run once before the template is placed.
func (m *MoleculeTemplate) ComputeCenter() {
	n := len(m.Coords)
	if n == 0 {
		return
	}
	var c r3.Vec
	for _, x := range m.Coords {
		c = r3.Add(c, x)
	}
	m.Center = r3.Scale(1/float64(n), c)
	m.Offsets = make([]r3.Vec, n)
	m.Radius = 0
	for i, x := range m.Coords {
		m.Offsets[i] = r3.Sub(x, m.Center)
		if r := r3.Norm(m.Offsets[i]); r > m.Radius {
			m.Radius = r
		}
	}
}

// CheckAttributes validates internal consistency: coordinates and types
// present and matching, topology indices in range, special lists (if any)
// covering every atom.
func (m *MoleculeTemplate) CheckAttributes() error {
	n := len(m.Coords)
	if n == 0 {
		return fmt.Errorf("molecule template %q has no coordinates", m.Name)
	}
	if len(m.Types) != n {
		return fmt.Errorf("molecule template %q must have one type per atom", m.Name)
	}
	if len(m.MolIDs) != 0 && len(m.MolIDs) != n {
		return fmt.Errorf("molecule template %q has partial sub-molecule ids", m.Name)
	}
	inRange := func(i int) bool { return i >= 1 && i <= n }
	for _, b := range m.Bonds {
		if !inRange(b.Atoms[0]) || !inRange(b.Atoms[1]) {
			return fmt.Errorf("molecule template %q bond references atom outside template", m.Name)
		}
	}
	for _, a := range m.Angles {
		for _, i := range a.Atoms {
			if !inRange(i) {
				return fmt.Errorf("molecule template %q angle references atom outside template", m.Name)
			}
		}
	}
	for _, d := range m.Dihedrals {
		for _, i := range d.Atoms {
			if !inRange(i) {
				return fmt.Errorf("molecule template %q dihedral references atom outside template", m.Name)
			}
		}
	}
	for _, im := range m.Impropers {
		for _, i := range im.Atoms {
			if !inRange(i) {
				return fmt.Errorf("molecule template %q improper references atom outside template", m.Name)
			}
		}
	}
	if m.HasSpecial() && len(m.Special) != n {
		return fmt.Errorf("molecule template %q special lists must cover every atom", m.Name)
	}
	for i, sp := range m.Special {
		for _, list := range [][]int{sp.OneTwo, sp.OneThree, sp.OneFour} {
			for _, j := range list {
				if !inRange(j) {
					return fmt.Errorf("molecule template %q special list of atom %d references atom outside template", m.Name, i+1)
				}
			}
		}
	}
	return nil
}

// on-disk representation
type moleculeFile struct {
	Name  string `yaml:"name"`
	Sets  int    `yaml:"sets"`
	Atoms []struct {
		Coords [3]float64 `yaml:"coords"`
		Type   int        `yaml:"type"`
		Mol    int        `yaml:"mol"`
	} `yaml:"atoms"`
	Bonds []struct {
		Type  int    `yaml:"type"`
		Atoms [2]int `yaml:"atoms"`
	} `yaml:"bonds"`
	Angles []struct {
		Type  int    `yaml:"type"`
		Atoms [3]int `yaml:"atoms"`
	} `yaml:"angles"`
	Dihedrals []struct {
		Type  int    `yaml:"type"`
		Atoms [4]int `yaml:"atoms"`
	} `yaml:"dihedrals"`
	Impropers []struct {
		Type  int    `yaml:"type"`
		Atoms [4]int `yaml:"atoms"`
	} `yaml:"impropers"`
	Special []struct {
		OneTwo   []int `yaml:"one_two"`
		OneThree []int `yaml:"one_three"`
		OneFour  []int `yaml:"one_four"`
	} `yaml:"special"`
}

// LoadMoleculeTemplate reads a template definition from a YAML file,
// validates it, and computes its derived geometry.
func LoadMoleculeTemplate(path string) (*MoleculeTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read molecule template: %w", err)
	}
	return ParseMoleculeTemplate(data)
}

// ParseMoleculeTemplate parses a YAML template definition.
func ParseMoleculeTemplate(data []byte) (*MoleculeTemplate, error) {
	var f moleculeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse molecule template: %w", err)
	}
	m := &MoleculeTemplate{Name: f.Name, NSets: f.Sets}
	if m.NSets == 0 {
		m.NSets = 1
	}
	anyMol := false
	for _, a := range f.Atoms {
		m.Coords = append(m.Coords, r3.Vec{X: a.Coords[0], Y: a.Coords[1], Z: a.Coords[2]})
		m.Types = append(m.Types, a.Type)
		if a.Mol != 0 {
			anyMol = true
		}
	}
	if anyMol {
		for _, a := range f.Atoms {
			id := a.Mol
			if id == 0 {
				id = 1
			}
			m.MolIDs = append(m.MolIDs, id)
		}
	}
	for _, b := range f.Bonds {
		m.Bonds = append(m.Bonds, Bond{Type: b.Type, Atoms: b.Atoms})
	}
	for _, a := range f.Angles {
		m.Angles = append(m.Angles, Angle{Type: a.Type, Atoms: a.Atoms})
	}
	for _, d := range f.Dihedrals {
		m.Dihedrals = append(m.Dihedrals, Dihedral{Type: d.Type, Atoms: d.Atoms})
	}
	for _, im := range f.Impropers {
		m.Impropers = append(m.Impropers, Improper{Type: im.Type, Atoms: im.Atoms})
	}
	for _, sp := range f.Special {
		m.Special = append(m.Special, SpecialLists{
			OneTwo:   sp.OneTwo,
			OneThree: sp.OneThree,
			OneFour:  sp.OneFour,
		})
	}
	if err := m.CheckAttributes(); err != nil {
		return nil, err
	}
	m.ComputeCenter()
	return m, nil
}
