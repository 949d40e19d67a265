package league

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// DNFCell is how a round is displayed for a driver who retired from the main race
// and scored nothing in the round.
const DNFCell = "DNF"

// RoundCell is a driver's result for one round: main race and sprint points combined.
type RoundCell struct {
	Points float64
	DNF    bool
}

// Value is the displayed points for the round, 0 for a DNF.
func (c RoundCell) Value() float64 {
	if c.DNF {
		return 0
	}

	return c.Points
}

func (c RoundCell) String() string {
	if c.DNF {
		return DNFCell
	}

	return formatPoints(c.Points)
}

func (c RoundCell) MarshalJSON() ([]byte, error) {
	if c.DNF {
		return json.Marshal(DNFCell)
	}

	return json.Marshal(c.Points)
}

func (c *RoundCell) UnmarshalJSON(data []byte) error {
	var v interface{}

	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch x := v.(type) {
	case string:
		if x == DNFCell {
			*c = RoundCell{DNF: true}
			return nil
		}

		points, err := strconv.ParseFloat(x, 64)

		if err != nil {
			return err
		}

		*c = RoundCell{Points: points}
	case float64:
		*c = RoundCell{Points: x}
	default:
		*c = RoundCell{}
	}

	return nil
}

// DriverStanding is the number of points a driver has across a season, and how they got them.
type DriverStanding struct {
	Driver      string               `json:"driverName"`
	TotalPoints float64              `json:"totalPoints"`
	PerRound    map[string]RoundCell `json:"perRound"`

	// Teams is a map of team name to how many sessions the driver raced for that team.
	Teams map[string]int `json:"teams"`
	// BestFinish is the best main race finishing position, 0 if the driver never finished one.
	BestFinish int `json:"bestFinish,omitempty"`
}

func newDriverStanding(name string) *DriverStanding {
	return &DriverStanding{
		Driver:   name,
		PerRound: make(map[string]RoundCell),
		Teams:    make(map[string]int),
	}
}

func (ds *DriverStanding) addSessionForTeam(team string) {
	ds.Teams[team]++
}

// TeamSummary lists the teams a driver has raced for. Drivers who moved teams get
// a session count per team.
func (ds *DriverStanding) TeamSummary() string {
	if len(ds.Teams) == 1 {
		for team := range ds.Teams {
			return team
		}
	}

	var summary []string

	for team, sessions := range ds.Teams {
		summary = append(summary, fmt.Sprintf("%s (%d races)", team, sessions))
	}

	sort.Strings(summary)

	return strings.Join(summary, ", ")
}

// ConstructorStanding is the current number of points a team has.
type ConstructorStanding struct {
	Team  string  `json:"teamName"`
	Total float64 `json:"total"`
}

// Standings is a season's driver and constructor championship tables.
type Standings struct {
	Rounds       []string               `json:"rounds"`
	Drivers      []*DriverStanding      `json:"drivers"`
	Constructors []*ConstructorStanding `json:"constructors"`
}

type roundSessions struct {
	main, sprint []*RaceRecord
}

type roundTally struct {
	points       float64
	sprintPoints float64
	mainDNF      bool
}

// cell is "DNF" only when the main race was a DNF and nothing was scored in the round.
// A classified retirement that still scored shows its points, so cell values always
// add up to the driver's total.
func (t *roundTally) cell() RoundCell {
	return RoundCell{
		Points: t.points,
		DNF:    t.mainDNF && t.sprintPoints == 0 && t.points == 0,
	}
}

// partitionRounds groups races by round number, returning the rounds in ascending order.
func partitionRounds(races []*RaceRecord) (map[int]*roundSessions, []int) {
	rounds := make(map[int]*roundSessions)

	var order []int

	for _, race := range races {
		if race == nil {
			continue
		}

		sessions, ok := rounds[race.Round]

		if !ok {
			sessions = &roundSessions{}
			rounds[race.Round] = sessions
			order = append(order, race.Round)
		}

		if race.Sprint {
			if len(sessions.sprint) > 0 {
				logrus.Warnf("round %d has more than one sprint race (%s)", race.Round, race.ID)
			}

			sessions.sprint = append(sessions.sprint, race)
		} else {
			if len(sessions.main) > 0 {
				logrus.Warnf("round %d has more than one main race (%s)", race.Round, race.ID)
			}

			sessions.main = append(sessions.main, race)
		}
	}

	sort.Ints(order)

	return rounds, order
}

// BuildStandings turns a season's races into sorted driver and constructor standings.
// Drivers and constructors on equal points are ordered by name.
func BuildStandings(races []*RaceRecord) *Standings {
	rounds, order := partitionRounds(races)

	standings := &Standings{
		Rounds:       make([]string, 0, len(order)),
		Drivers:      []*DriverStanding{},
		Constructors: []*ConstructorStanding{},
	}

	drivers := make(map[string]*DriverStanding)
	tallies := make(map[string]map[string]*roundTally)

	for _, roundNum := range order {
		key := strconv.Itoa(roundNum)
		standings.Rounds = append(standings.Rounds, key)

		roundTallies := make(map[string]*roundTally)
		tallies[key] = roundTallies

		accumulate := func(race *RaceRecord, isSprint bool) {
			for _, result := range race.RaceResults {
				if result == nil {
					continue
				}

				name := result.DriverDisplayName()

				standing, ok := drivers[name]

				if !ok {
					standing = newDriverStanding(name)
					drivers[name] = standing
				}

				standing.addSessionForTeam(result.TeamDisplayName())

				tally, ok := roundTallies[name]

				if !ok {
					tally = &roundTally{}
					roundTallies[name] = tally
				}

				tally.points += result.Points

				if isSprint {
					tally.sprintPoints += result.Points
					continue
				}

				if result.DNF {
					tally.mainDNF = true
				} else if result.Position != nil && *result.Position > 0 {
					if standing.BestFinish == 0 || *result.Position < standing.BestFinish {
						standing.BestFinish = *result.Position
					}
				}
			}
		}

		for _, race := range rounds[roundNum].main {
			accumulate(race, false)
		}

		for _, race := range rounds[roundNum].sprint {
			accumulate(race, true)
		}
	}

	for name, standing := range drivers {
		for _, key := range standings.Rounds {
			tally, ok := tallies[key][name]

			if !ok {
				standing.PerRound[key] = RoundCell{}
				continue
			}

			standing.PerRound[key] = tally.cell()
			standing.TotalPoints += tally.points
		}

		standings.Drivers = append(standings.Drivers, standing)
	}

	sort.SliceStable(standings.Drivers, func(i, j int) bool {
		if standings.Drivers[i].TotalPoints == standings.Drivers[j].TotalPoints {
			return standings.Drivers[i].Driver < standings.Drivers[j].Driver
		}

		return standings.Drivers[i].TotalPoints > standings.Drivers[j].TotalPoints
	})

	standings.Constructors = buildConstructorStandings(races)

	return standings
}

func buildConstructorStandings(races []*RaceRecord) []*ConstructorStanding {
	teams := make(map[string]float64)

	for _, race := range races {
		if race == nil {
			continue
		}

		for _, result := range race.RaceResults {
			if result == nil {
				continue
			}

			teams[result.TeamDisplayName()] += result.Points
		}
	}

	out := make([]*ConstructorStanding, 0, len(teams))

	for name, points := range teams {
		out = append(out, &ConstructorStanding{
			Team:  name,
			Total: points,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Team < out[j].Team
		}

		return out[i].Total > out[j].Total
	})

	return out
}

// Leader is the driver at the top of the standings, nil for an empty season.
func (s *Standings) Leader() *DriverStanding {
	if s == nil || len(s.Drivers) == 0 {
		return nil
	}

	return s.Drivers[0]
}

// RoundsCompleted is the number of round columns, 0 while no race has any results.
func (s *Standings) RoundsCompleted() int {
	if s == nil || len(s.Drivers) == 0 {
		return 0
	}

	return len(s.Rounds)
}

// FindDriver returns a driver's position (1-indexed) and standing, matching names
// regardless of case and accents.
func (s *Standings) FindDriver(name string) (int, *DriverStanding) {
	if s == nil {
		return 0, nil
	}

	for i, standing := range s.Drivers {
		if SameDriver(standing.Driver, name) {
			return i + 1, standing
		}
	}

	return 0, nil
}

func (s *Standings) findConstructor(team string) (int, *ConstructorStanding) {
	for i, standing := range s.Constructors {
		if standing.Team == team {
			return i + 1, standing
		}
	}

	return 0, nil
}

// DriverSummary describes where a driver sits in the championship and who is ahead of them.
func (s *Standings) DriverSummary(name string) string {
	if s.RoundsCompleted() == 0 {
		return "The season hasn't started yet!"
	}

	driverPos, standing := s.FindDriver(name)

	if standing == nil {
		return ""
	}

	out := fmt.Sprintf("%s is currently %d%s with %s points. ", standing.Driver, driverPos, ordinal(int64(driverPos)), formatPoints(standing.TotalPoints))

	if driverPos >= 2 {
		ahead := s.Drivers[driverPos-2]
		out += fmt.Sprintf("The driver ahead is %s with %s points. ", ahead.Driver, formatPoints(ahead.TotalPoints))
	}

	if len(standing.Teams) == 1 {
		team := standing.TeamSummary()

		if team != UnknownName {
			teamPos, teamStanding := s.findConstructor(team)

			if teamStanding != nil {
				out += fmt.Sprintf("Their team '%s' is %d%s with %s points. ", team, teamPos, ordinal(int64(teamPos)), formatPoints(teamStanding.Total))

				if teamPos >= 2 {
					ahead := s.Constructors[teamPos-2]
					out += fmt.Sprintf("The team ahead is '%s' with %s points. ", ahead.Team, formatPoints(ahead.Total))
				}
			}
		}
	}

	return strings.TrimSpace(out)
}
