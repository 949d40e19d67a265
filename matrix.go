package league

import (
	"encoding/json"
)

// MatrixSize is the number of grid and finishing positions tracked by a PositionMatrix.
const MatrixSize = 20

// PositionMatrix maps a driver's starting position to their finishing position.
// Cell [grid-1][finish-1] holds every race in which they started at grid and finished at finish,
// in the order the races were given.
type PositionMatrix struct {
	Driver string

	cells [MatrixSize][MatrixSize][]*RaceRecord

	// Considered is the number of races the driver took part in.
	Considered int
	// Excluded is how many of those races were left out (DNF, missing or out of range positions).
	Excluded int
}

// BuildPositionMatrix builds a start/finish heatmap for a driver from their race history.
func BuildPositionMatrix(races []*RaceRecord, driver string) *PositionMatrix {
	m := &PositionMatrix{Driver: driver}

	for _, race := range races {
		if race == nil {
			continue
		}

		result := findDriverResult(race, driver)

		if result == nil {
			continue
		}

		m.Considered++

		if result.DNF || result.QualifyingPosition == nil || result.Position == nil {
			m.Excluded++
			continue
		}

		grid, finish := *result.QualifyingPosition, *result.Position

		if grid < 1 || grid > MatrixSize || finish < 1 || finish > MatrixSize {
			m.Excluded++
			continue
		}

		m.cells[grid-1][finish-1] = append(m.cells[grid-1][finish-1], race)
	}

	return m
}

func findDriverResult(race *RaceRecord, driver string) *RaceResultRecord {
	for _, result := range race.RaceResults {
		if result == nil {
			continue
		}

		if SameDriver(result.DriverLookupName(), driver) {
			return result
		}
	}

	return nil
}

// Cell returns the races started at grid and finished at finish (both 1-indexed).
func (m *PositionMatrix) Cell(grid, finish int) []*RaceRecord {
	if grid < 1 || grid > MatrixSize || finish < 1 || finish > MatrixSize {
		return nil
	}

	return m.cells[grid-1][finish-1]
}

// Count is the number of races in a cell.
func (m *PositionMatrix) Count(grid, finish int) int {
	return len(m.Cell(grid, finish))
}

// Counted is the number of races placed in the matrix.
func (m *PositionMatrix) Counted() int {
	return m.Considered - m.Excluded
}

// Counts is the matrix as race counts, indexed [grid-1][finish-1].
func (m *PositionMatrix) Counts() [][]int {
	out := make([][]int, MatrixSize)

	for grid := range out {
		out[grid] = make([]int, MatrixSize)

		for finish := range out[grid] {
			out[grid][finish] = len(m.cells[grid][finish])
		}
	}

	return out
}

// MatrixRace is a reference to a race in a matrix cell.
type MatrixRace struct {
	ID     ID     `json:"id"`
	Round  int    `json:"round"`
	Sprint bool   `json:"sprint"`
	Track  string `json:"track"`
}

// MatrixCell is a non-empty cell of a PositionMatrix.
type MatrixCell struct {
	Grid   int           `json:"grid"`
	Finish int           `json:"finish"`
	Races  []*MatrixRace `json:"races"`
}

// NonEmptyCells lists the populated cells, ordered by grid then finish.
func (m *PositionMatrix) NonEmptyCells() []*MatrixCell {
	var out []*MatrixCell

	for grid := 0; grid < MatrixSize; grid++ {
		for finish := 0; finish < MatrixSize; finish++ {
			races := m.cells[grid][finish]

			if len(races) == 0 {
				continue
			}

			cell := &MatrixCell{Grid: grid + 1, Finish: finish + 1}

			for _, race := range races {
				cell.Races = append(cell.Races, &MatrixRace{
					ID:     race.ID,
					Round:  race.Round,
					Sprint: bool(race.Sprint),
					Track:  race.TrackName(),
				})
			}

			out = append(out, cell)
		}
	}

	return out
}

func (m *PositionMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Driver     string        `json:"driver"`
		Size       int           `json:"size"`
		Counts     [][]int       `json:"counts"`
		Cells      []*MatrixCell `json:"cells"`
		Considered int           `json:"considered"`
		Excluded   int           `json:"excluded"`
	}{
		Driver:     m.Driver,
		Size:       MatrixSize,
		Counts:     m.Counts(),
		Cells:      m.NonEmptyCells(),
		Considered: m.Considered,
		Excluded:   m.Excluded,
	})
}
