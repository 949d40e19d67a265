package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/JustaPenguin/league-standings"

	"github.com/dimchansky/utfbom"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
)

var (
	apiURL    string
	season    string
	division  string
	file      string
	driver    string
	progress  bool
	aggregate bool
	top       int
	noColor   bool
	timeout   time.Duration
)

func init() {
	flag.StringVar(&apiURL, "api", "", "base url of the league api")
	flag.StringVar(&season, "season", "", "season to show")
	flag.StringVar(&division, "division", "", "division to show")
	flag.StringVar(&file, "file", "", "read a saved json payload instead of calling the api")
	flag.StringVar(&driver, "matrix", "", "show the start/finish position matrix for this driver")
	flag.BoolVar(&progress, "progress", false, "show season progress instead of standings")
	flag.BoolVar(&aggregate, "aggregate", false, "combine sprint and main races in season progress")
	flag.IntVar(&top, "top", league.DefaultProgressDrivers, "number of drivers shown in season progress")
	flag.BoolVar(&noColor, "no-color", false, "disable coloured output")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "league api timeout")
}

func main() {
	flag.Parse()

	if noColor {
		color.NoColor = true
	}

	var path string

	switch {
	case driver != "":
		path = league.DriverRacesPath(driver)
	case progress:
		path = league.ProgressPath(season, division, aggregate)
	default:
		path = league.RacesPath(season, division)
	}

	if file == "" && driver == "" && (season == "" || division == "") {
		logrus.Fatal("-season and -division (or -matrix) are required")
	}

	data, err := load(path)

	if err != nil {
		logrus.Fatalf("could not load %s, err: %s", path, err)
	}

	switch {
	case driver != "":
		printMatrix(league.BuildPositionMatrix(league.DecodeRaces(data), driver))
	case progress:
		printProgress(league.BuildSeasonProgress(league.DecodeProgressSteps(data), aggregate, top))
	default:
		printStandings(league.BuildStandings(league.DecodeRaces(data)))
	}
}

func load(path string) ([]byte, error) {
	if file != "" {
		f, err := os.Open(file)

		if err != nil {
			return nil, err
		}

		defer f.Close()

		return ioutil.ReadAll(utfbom.SkipOnly(f))
	}

	if apiURL == "" {
		return nil, fmt.Errorf("one of -api or -file must be given")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := league.NewAPIClient(league.APIConfig{
		BaseURL:   apiURL,
		TimeoutS:  int(timeout / time.Second),
		UserAgent: "league-standings-cli/1.0",
	})

	return client.Fetch(ctx, path)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)

	return t
}

func printStandings(standings *league.Standings) {
	dnf := color.New(color.FgRed, color.Bold).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	drivers := newTable()
	drivers.SetTitle("Drivers")

	header := table.Row{"#", "Driver", "Team"}

	for _, round := range standings.Rounds {
		header = append(header, "R"+round)
	}

	drivers.AppendHeader(append(header, "Total"))

	for i, standing := range standings.Drivers {
		row := table.Row{i + 1, standing.Driver, standing.TeamSummary()}

		for _, round := range standings.Rounds {
			cell := standing.PerRound[round]

			if cell.DNF {
				row = append(row, dnf(cell.String()))
			} else {
				row = append(row, cell.String())
			}
		}

		drivers.AppendRow(append(row, bold(strconv.FormatFloat(standing.TotalPoints, 'f', -1, 64))))
	}

	drivers.Render()

	constructors := newTable()
	constructors.SetTitle("Constructors")
	constructors.AppendHeader(table.Row{"#", "Team", "Points"})

	for i, standing := range standings.Constructors {
		constructors.AppendRow(table.Row{i + 1, standing.Team, strconv.FormatFloat(standing.Total, 'f', -1, 64)})
	}

	constructors.Render()
}

func printProgress(series *league.ProgressSeries) {
	t := newTable()
	t.SetTitle("Season Progress")

	header := table.Row{"Driver"}

	for _, row := range series.Rows {
		header = append(header, row.Label)
	}

	t.AppendHeader(header)

	for _, d := range series.Drivers {
		row := table.Row{d.Name}

		for _, step := range series.Rows {
			row = append(row, strconv.FormatFloat(step.Values[d.Name], 'f', -1, 64))
		}

		t.AppendRow(row)
	}

	t.Render()
}

func printMatrix(matrix *league.PositionMatrix) {
	highlight := color.New(color.FgGreen).SprintFunc()

	t := newTable()
	t.SetTitle(fmt.Sprintf("%s: start (rows) vs finish (columns)", matrix.Driver))

	header := table.Row{"Grid"}

	for finish := 1; finish <= league.MatrixSize; finish++ {
		header = append(header, "P"+strconv.Itoa(finish))
	}

	t.AppendHeader(header)

	for grid := 1; grid <= league.MatrixSize; grid++ {
		row := table.Row{"P" + strconv.Itoa(grid)}

		for finish := 1; finish <= league.MatrixSize; finish++ {
			count := matrix.Count(grid, finish)

			switch {
			case count == 0:
				row = append(row, "")
			case grid == finish:
				row = append(row, count)
			default:
				row = append(row, highlight(count))
			}
		}

		t.AppendRow(row)
	}

	t.Render()

	fmt.Printf("%d races considered, %d left out (DNF or no grid/finish position)\n", matrix.Considered, matrix.Excluded)
}
