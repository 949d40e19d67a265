package league

import (
	"fmt"
	"reflect"
	"testing"
)

func step(round int, sprint bool, totals ...interface{}) *ProgressStep {
	s := &ProgressStep{Round: round, Sprint: Flag(sprint)}

	for i := 0; i+1 < len(totals); i += 2 {
		s.Standings = append(s.Standings, &StepStanding{
			Driver:     NameRef{Name: totals[i].(string)},
			Cumulative: totals[i+1].(float64),
		})
	}

	return s
}

func TestBuildSeasonProgress_CarriesValuesForward(t *testing.T) {
	steps := []*ProgressStep{
		step(1, false, "X", 10.0, "Y", 5.0),
		step(2, false, "X", 25.0),
		step(3, false, "X", 40.0, "Y", 12.0),
	}

	series := BuildSeasonProgress(steps, false, 0)

	if len(series.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(series.Rows))
	}

	if got := series.Rows[1].Values["Y"]; got != 5 {
		t.Errorf("Expected Y's second row value to be carried forward as 5, got %v", got)
	}

	expectedX := []float64{10, 25, 40}

	for i, row := range series.Rows {
		if row.Values["X"] != expectedX[i] {
			t.Logf("Row %d: expected X to be %v, got %v", i, expectedX[i], row.Values["X"])
			t.Fail()
		}
	}

	if len(steps[1].Standings) != 1 {
		t.Error("The input steps should not be modified")
	}
}

func TestBuildSeasonProgress_EveryDriverInEveryRow(t *testing.T) {
	steps := []*ProgressStep{
		step(1, false, "A", 10.0),
		step(2, false, "B", 8.0),
		step(3, false, "C", 30.0),
	}

	series := BuildSeasonProgress(steps, false, 0)

	for i, row := range series.Rows {
		for _, driver := range series.Drivers {
			if _, ok := row.Values[driver.Name]; !ok {
				t.Logf("Row %d is missing a value for %s", i, driver.Name)
				t.Fail()
			}
		}
	}

	// drivers who haven't appeared yet start at 0
	if series.Rows[0].Values["C"] != 0 {
		t.Errorf("Expected C to start at 0, got %v", series.Rows[0].Values["C"])
	}
}

func TestBuildSeasonProgress_TopDrivers(t *testing.T) {
	var totals []interface{}

	for i := 0; i < 20; i++ {
		totals = append(totals, fmt.Sprintf("Driver %02d", i), float64(i))
	}

	steps := []*ProgressStep{
		step(1, false, totals...),
	}

	series := BuildSeasonProgress(steps, false, 0)

	if len(series.Drivers) != DefaultProgressDrivers {
		t.Fatalf("Expected %d drivers, got %d", DefaultProgressDrivers, len(series.Drivers))
	}

	if series.Drivers[0].Name != "Driver 19" || series.Drivers[0].Rank != 1 || series.Drivers[0].Color != ProgressColors[0] {
		t.Errorf("Expected Driver 19 to be ranked first, got %+v", series.Drivers[0])
	}

	if len(series.Rows[0].Values) != DefaultProgressDrivers {
		t.Errorf("Expected rows to only hold the top %d drivers, got %d", DefaultProgressDrivers, len(series.Rows[0].Values))
	}

	if _, ok := series.Rows[0].Values["Driver 00"]; ok {
		t.Error("Driver 00 should not be in the chart")
	}

	if len(steps[0].Standings) != 20 {
		t.Error("The input steps should keep every driver")
	}

	series = BuildSeasonProgress(steps, false, 3)

	var names []string

	for _, driver := range series.Drivers {
		names = append(names, driver.Name)
	}

	if !reflect.DeepEqual(names, []string{"Driver 19", "Driver 18", "Driver 17"}) {
		t.Errorf("Expected the top 3 drivers, got %v", names)
	}
}

func TestBuildSeasonProgress_Labels(t *testing.T) {
	steps := []*ProgressStep{
		step(1, true, "A", 8.0),
		step(1, false, "A", 33.0),
		step(2, false, "A", 58.0),
	}

	series := BuildSeasonProgress(steps, false, 0)

	var labels []string

	for _, row := range series.Rows {
		labels = append(labels, row.Label)
	}

	if !reflect.DeepEqual(labels, []string{"R1 Sprint", "R1", "R2"}) {
		t.Errorf("Unexpected labels: %v", labels)
	}
}

func TestBuildSeasonProgress_Aggregate(t *testing.T) {
	steps := []*ProgressStep{
		step(1, true, "A", 8.0, "B", 7.0),
		step(1, false, "A", 33.0),
		step(2, false, "B", 32.0),
	}

	series := BuildSeasonProgress(steps, true, 0)

	if len(series.Rows) != 2 {
		t.Fatalf("Expected sprint and main race to be combined into 2 rows, got %d", len(series.Rows))
	}

	first := series.Rows[0]

	if first.Label != "R1" || first.Sprint || first.Values["A"] != 33 || first.Values["B"] != 7 {
		t.Errorf("Unexpected first row: %+v", first)
	}

	if series.Rows[1].Values["A"] != 33 || series.Rows[1].Values["B"] != 32 {
		t.Errorf("Unexpected second row: %+v", series.Rows[1])
	}
}

func TestBuildSeasonProgress_Empty(t *testing.T) {
	series := BuildSeasonProgress(nil, false, 0)

	if len(series.Rows) != 0 || len(series.Drivers) != 0 {
		t.Errorf("Expected an empty series, got %+v", series)
	}

	if series.Rows == nil || series.Drivers == nil {
		t.Error("Expected empty, not nil, rows and drivers")
	}
}

func TestDecodeProgressSteps(t *testing.T) {
	steps := DecodeProgressSteps([]byte(`[
		{"round": 1, "sprint": "Yes", "standings": [{"driver": {"name": "A"}, "cumulative": 8}]},
		null,
		{"round": 1, "sprint": "No", "standings": [{"driver": "A", "cumulative": 33}]}
	]`))

	if len(steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(steps))
	}

	if !steps[0].Sprint || steps[1].Sprint {
		t.Error("Expected the first step to be a sprint")
	}

	if steps[1].Standings[0].Driver.Name != "A" || steps[1].Standings[0].Cumulative != 33 {
		t.Errorf("Unexpected standing: %+v", steps[1].Standings[0])
	}

	if steps := DecodeProgressSteps([]byte(`{"error": "nope"}`)); len(steps) != 0 {
		t.Errorf("Expected no steps from a non-array payload, got %d", len(steps))
	}
}

func TestProgressColor(t *testing.T) {
	if ProgressColor(0) != ProgressColors[0] || ProgressColor(len(ProgressColors)) != ProgressColors[0] || ProgressColor(-1) != ProgressColors[0] {
		t.Error("Expected colours to wrap around the palette")
	}
}

func TestDisplaySeries(t *testing.T) {
	series := BuildSeasonProgress([]*ProgressStep{
		step(1, false, "Lewis Hamilton", 25.0, "Max Verstappen", 18.0),
	}, false, 0)

	if displaySeries(series) != series {
		t.Error("Expected full names to be left alone")
	}

	UseShortenedDriverNames = true
	defer func() {
		UseShortenedDriverNames = false
	}()

	shortened := displaySeries(series)

	if shortened.Drivers[0].Name != "Lewis H." || shortened.Rows[0].Values["Max V."] != 18 {
		t.Errorf("Expected shortened names, got %+v %v", shortened.Drivers[0], shortened.Rows[0].Values)
	}

	if _, ok := shortened.Rows[0].Values["Lewis Hamilton"]; ok {
		t.Error("Expected no full names in the shortened series")
	}

	if series.Drivers[0].Name != "Lewis Hamilton" {
		t.Error("Expected the original series not to be changed")
	}
}
