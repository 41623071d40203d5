package cmd

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	sim "github.com/particle-sim/particle-sim/sim"
)

// particleRecord is one row of the CSV snapshot.
type particleRecord struct {
	Rank int     `csv:"rank"`
	Tag  int64   `csv:"tag"`
	Type int     `csv:"type"`
	Mol  int64   `csv:"mol"`
	X    float64 `csv:"x"`
	Y    float64 `csv:"y"`
	Z    float64 `csv:"z"`
}

// writeSnapshot dumps every rank's particles, in rank then creation order,
// to a CSV file.
func writeSnapshot(path string, systems []*sim.System) error {
	var records []*particleRecord
	for rank, sys := range systems {
		if sys == nil {
			continue
		}
		a := sys.Atoms
		for i := 0; i < a.Nlocal; i++ {
			records = append(records, &particleRecord{
				Rank: rank,
				Tag:  a.Tag[i],
				Type: a.Type[i],
				Mol:  a.Molecule[i],
				X:    a.X[i][0],
				Y:    a.X[i][1],
				Z:    a.X[i][2],
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
