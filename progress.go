package league

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// DefaultProgressDrivers is how many drivers a season progress chart shows.
const DefaultProgressDrivers = 15

// ProgressColors are assigned to drivers in a season progress chart by final championship position.
var ProgressColors = []string{
	"#9ec6f5",
	"#91d8af",
	"#dba8ed",
	"#e3a488",
	"#e3819a",
	"#908ba1",
	"#a2b5b9",
	"#a681b4",
	"#c1929d",
	"#999ecf",
	"#f5d76e",
	"#6ec8c8",
	"#c8b46e",
	"#8fb36b",
	"#d98cb3",
}

// ProgressColor returns the chart colour for a 0-indexed final position.
func ProgressColor(rank int) string {
	if rank < 0 {
		rank = 0
	}

	return ProgressColors[rank%len(ProgressColors)]
}

// StepStanding is a driver's cumulative points after a ProgressStep.
type StepStanding struct {
	Driver     NameRef `json:"driver"`
	Cumulative float64 `json:"cumulative"`
}

// ProgressStep is the championship state after one session (or one round, when the API aggregates).
type ProgressStep struct {
	Round     int             `json:"round"`
	Sprint    Flag            `json:"sprint"`
	Standings []*StepStanding `json:"standings"`
}

// DecodeProgressSteps decodes a JSON array of steps. Anything else is treated as "no steps".
func DecodeProgressSteps(data []byte) []*ProgressStep {
	var steps []*ProgressStep

	if err := json.Unmarshal(data, &steps); err != nil {
		logrus.WithError(err).Debug("progress payload is not an array of steps, treating as empty")
		return []*ProgressStep{}
	}

	out := steps[:0]

	for _, step := range steps {
		if step != nil {
			out = append(out, step)
		}
	}

	return out
}

// SeriesDriver is a driver plotted on a season progress chart.
type SeriesDriver struct {
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Final float64 `json:"final"`
	Rank  int     `json:"rank"`
}

// ProgressRow is one point on the x axis of a season progress chart.
type ProgressRow struct {
	Round  int                `json:"round"`
	Sprint bool               `json:"sprint"`
	Label  string             `json:"label"`
	Values map[string]float64 `json:"values"`
}

// ProgressSeries is a cumulative points chart for the top drivers of a season.
type ProgressSeries struct {
	Drivers []*SeriesDriver `json:"drivers"`
	Rows    []*ProgressRow  `json:"rows"`
}

func stepLabel(round int, sprint bool) string {
	if sprint {
		return fmt.Sprintf("R%d Sprint", round)
	}

	return fmt.Sprintf("R%d", round)
}

// BuildSeasonProgress turns cumulative standings steps into a chart series. Drivers missing
// from a step keep their previous total. Only the topN drivers by final total are kept
// (DefaultProgressDrivers if topN <= 0). If aggregate is set, consecutive steps for the same
// round are collapsed into a single row.
func BuildSeasonProgress(steps []*ProgressStep, aggregate bool, topN int) *ProgressSeries {
	if topN <= 0 {
		topN = DefaultProgressDrivers
	}

	series := &ProgressSeries{
		Drivers: []*SeriesDriver{},
		Rows:    []*ProgressRow{},
	}

	var names []string

	last := make(map[string]float64)

	for _, step := range steps {
		if step == nil {
			continue
		}

		for _, standing := range step.Standings {
			if standing == nil {
				continue
			}

			name := displayName(standing.Driver.Name)

			if _, seen := last[name]; !seen {
				last[name] = 0
				names = append(names, name)
			}
		}
	}

	var rows []*ProgressRow

	for _, step := range steps {
		if step == nil {
			continue
		}

		values := make(map[string]float64, len(names))

		for _, name := range names {
			values[name] = last[name]
		}

		for _, standing := range step.Standings {
			if standing == nil {
				continue
			}

			name := displayName(standing.Driver.Name)
			last[name] = standing.Cumulative
			values[name] = standing.Cumulative
		}

		if aggregate && len(rows) > 0 && rows[len(rows)-1].Round == step.Round {
			rows[len(rows)-1].Values = values
			continue
		}

		sprint := bool(step.Sprint) && !aggregate

		rows = append(rows, &ProgressRow{
			Round:  step.Round,
			Sprint: sprint,
			Label:  stepLabel(step.Round, sprint),
			Values: values,
		})
	}

	ranked := make([]string, len(names))
	copy(ranked, names)

	sort.SliceStable(ranked, func(i, j int) bool {
		if last[ranked[i]] == last[ranked[j]] {
			return ranked[i] < ranked[j]
		}

		return last[ranked[i]] > last[ranked[j]]
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	for rank, name := range ranked {
		series.Drivers = append(series.Drivers, &SeriesDriver{
			Name:  name,
			Color: ProgressColor(rank),
			Final: last[name],
			Rank:  rank + 1,
		})
	}

	for _, row := range rows {
		pruned := make(map[string]float64, len(ranked))

		for _, name := range ranked {
			pruned[name] = row.Values[name]
		}

		row.Values = pruned
		series.Rows = append(series.Rows, row)
	}

	return series
}

// displaySeries renames the drivers of a series with driverName, for rendering.
func displaySeries(series *ProgressSeries) *ProgressSeries {
	if series == nil || !UseShortenedDriverNames {
		return series
	}

	out := &ProgressSeries{
		Drivers: make([]*SeriesDriver, 0, len(series.Drivers)),
		Rows:    make([]*ProgressRow, 0, len(series.Rows)),
	}

	for _, driver := range series.Drivers {
		renamed := *driver
		renamed.Name = driverName(driver.Name)
		out.Drivers = append(out.Drivers, &renamed)
	}

	for _, row := range series.Rows {
		renamed := *row
		renamed.Values = make(map[string]float64, len(row.Values))

		for name, value := range row.Values {
			renamed.Values[driverName(name)] = value
		}

		out.Rows = append(out.Rows, &renamed)
	}

	return out
}
