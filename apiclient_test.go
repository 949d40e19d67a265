package league

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const racesFixture = `[
	{"id": 1, "round": 1, "sprint": "No", "track": {"name": "Bahrain"}, "raceResults": [
		{"position": 1, "qualifyingPosition": 5, "points": 25, "dnf": "No", "driver": {"name": "Driver A"}, "team": {"name": "Red"}},
		{"position": 2, "qualifyingPosition": 1, "points": 18, "dnf": "No", "driver": {"name": "Driver B"}, "team": {"name": "Blue"}}
	]},
	{"id": 2, "round": 1, "sprint": "Yes", "raceResults": [
		{"position": 1, "points": 8, "dnf": "No", "driver": {"name": "Driver A"}, "team": {"name": "Red"}}
	]},
	{"id": 3, "round": 2, "sprint": "No", "raceResults": [
		{"position": null, "points": 0, "dnf": "DNF", "driver": {"name": "Driver A"}, "team": {"name": "Red"}},
		{"position": 1, "qualifyingPosition": 2, "points": 25, "dnf": "No", "driver": {"name": "Driver B"}, "team": {"name": "Blue"}}
	]}
]`

const progressFixture = `[
	{"round": 1, "sprint": "No", "standings": [{"driver": {"name": "Driver A"}, "cumulative": 25}, {"driver": {"name": "Driver B"}, "cumulative": 18}]},
	{"round": 1, "sprint": "Yes", "standings": [{"driver": {"name": "Driver A"}, "cumulative": 33}]},
	{"round": 2, "sprint": "No", "standings": [{"driver": {"name": "Driver B"}, "cumulative": 43}]}
]`

const driversFixture = `[
	{"id": 1, "name": "Driver A", "nationality": "British", "team": {"name": "Red"}},
	{"id": 2, "name": "Driver B", "team": "Blue"},
	{"id": 3, "name": "Sergio Pérez", "team": {"name": "Green"}},
	{"id": 4, "name": ""}
]`

// fakeLeagueAPI serves fixtures for a single season/division. It fails every request while down is set.
type fakeLeagueAPI struct {
	*httptest.Server

	down     int32
	requests int32
}

func newFakeLeagueAPI(t *testing.T) *fakeLeagueAPI {
	api := &fakeLeagueAPI{}

	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&api.requests, 1)

		if atomic.LoadInt32(&api.down) == 1 {
			http.Error(w, "league api is down for maintenance", http.StatusServiceUnavailable)
			return
		}

		switch r.URL.Path {
		case "/races/2024/1", "/drivers/Driver A/races":
			_, _ = w.Write([]byte(racesFixture))
		case "/standings/2024/1/progress":
			_, _ = w.Write([]byte(progressFixture))
		case DriversPath:
			_, _ = w.Write([]byte(driversFixture))
		default:
			http.NotFound(w, r)
		}
	}))

	t.Cleanup(api.Close)

	return api
}

func (api *fakeLeagueAPI) setDown(down bool) {
	if down {
		atomic.StoreInt32(&api.down, 1)
	} else {
		atomic.StoreInt32(&api.down, 0)
	}
}

func (api *fakeLeagueAPI) client() *APIClient {
	return NewAPIClient(APIConfig{BaseURL: api.URL + "/", TimeoutS: 5, UserAgent: "league-standings-test"})
}

func TestAPIClient_Races(t *testing.T) {
	api := newFakeLeagueAPI(t)

	races, err := api.client().Races(context.Background(), "2024", "1")

	if err != nil {
		t.Fatal(err)
	}

	if len(races) != 3 || races[0].TrackName() != "Bahrain" || !bool(races[1].Sprint) {
		t.Errorf("Unexpected races: %+v", races)
	}
}

func TestAPIClient_ProgressSteps(t *testing.T) {
	api := newFakeLeagueAPI(t)

	steps, err := api.client().ProgressSteps(context.Background(), "2024", "1", true)

	if err != nil {
		t.Fatal(err)
	}

	if len(steps) != 3 {
		t.Errorf("Expected 3 steps, got %d", len(steps))
	}
}

func TestAPIClient_DriverRaces(t *testing.T) {
	api := newFakeLeagueAPI(t)

	races, err := api.client().DriverRaces(context.Background(), "Driver A")

	if err != nil {
		t.Fatal(err)
	}

	if len(races) != 3 {
		t.Errorf("Expected 3 races, got %d", len(races))
	}
}

func TestAPIClient_Errors(t *testing.T) {
	api := newFakeLeagueAPI(t)
	api.setDown(true)

	_, err := api.client().Fetch(context.Background(), RacesPath("2024", "1"))

	apiErr, ok := err.(*APIError)

	if !ok {
		t.Fatalf("Expected an *APIError, got %T (%v)", err, err)
	}

	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Body != "league api is down for maintenance" {
		t.Errorf("Unexpected error: %+v", apiErr)
	}

	api.setDown(false)

	if _, err := api.client().Fetch(context.Background(), "/races/1999/9"); err == nil {
		t.Error("Expected a 404 to be an error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	time.Sleep(time.Millisecond)

	if _, err := api.client().Fetch(ctx, RacesPath("2024", "1")); err == nil {
		t.Error("Expected a cancelled context to fail the request")
	}
}

func TestAPIPaths(t *testing.T) {
	if RacesPath("2024", "Pro Am") != "/races/2024/Pro%20Am" {
		t.Errorf("Unexpected races path: %s", RacesPath("2024", "Pro Am"))
	}

	if ProgressPath("2024", "1", true) != "/standings/2024/1/progress?aggregate=true" {
		t.Errorf("Unexpected progress path: %s", ProgressPath("2024", "1", true))
	}

	if DriverRacesPath("Driver A") != "/drivers/Driver%20A/races" {
		t.Errorf("Unexpected driver races path: %s", DriverRacesPath("Driver A"))
	}
}
