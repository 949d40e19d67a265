package league

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRouter(t *testing.T, api *fakeLeagueAPI) http.Handler {
	renderer, err := NewRenderer(NewFilesystemTemplateLoader(filepath.Join("cmd", "league-server", "views")), &Configuration{}, false)

	if err != nil {
		t.Fatal(err)
	}

	lm := newTestLeagueManager(t, api, nil)
	hub := NewLiveHub()

	return Router(NewLeagueHandler(NewBaseHandler(renderer), lm), hub, NewHealthCheck(lm, lm.store, lm.index, hub))
}

func doRequest(router http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)

	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestLeagueHandler_StandingsAPI(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	w := doRequest(router, http.MethodGet, "/api/standings/2024/1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var view StandingsView

	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}

	if view.Season != "2024" || view.Stale || view.Standings.Leader().Driver != "Driver B" {
		t.Errorf("Unexpected standings: %+v", view)
	}

	if w.Header().Get("ETag") == "" {
		t.Error("Expected an ETag")
	}
}

func TestLeagueHandler_ETag(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	w := doRequest(router, http.MethodGet, "/api/drivers/Driver%20A/matrix", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	etag := w.Header().Get("ETag")

	if etag == "" {
		t.Fatal("Expected an ETag")
	}

	w = doRequest(router, http.MethodGet, "/api/drivers/Driver%20A/matrix", http.Header{"If-None-Match": []string{etag}})

	if w.Code != http.StatusNotModified {
		t.Errorf("Expected 304, got %d", w.Code)
	}
}

func TestLeagueHandler_APIErrors(t *testing.T) {
	api := newFakeLeagueAPI(t)
	router := newTestRouter(t, api)

	api.setDown(true)

	w := doRequest(router, http.MethodGet, "/api/standings/2024/1", nil)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 with no snapshot, got %d", w.Code)
	}

	var resp apiError

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !strings.Contains(resp.Error, "503") {
		t.Errorf("Expected the league api error in the body, got %s", w.Body.String())
	}

	api.setDown(false)

	badRequests := []string{
		"/api/progress/2024/1?aggregate=maybe",
		"/api/progress/2024/1?top=-1",
		"/api/progress/2024/1?top=three",
		"/api/dashboard/2024/1?aggregate=2",
		"/api/drivers/search?q=perez&limit=x",
		"/api/standings/2024/%20",
	}

	for _, path := range badRequests {
		if w := doRequest(router, http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestLeagueHandler_ProgressAPI(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	w := doRequest(router, http.MethodGet, "/api/progress/2024/1?aggregate=true&top=1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var view ProgressView

	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}

	if !view.Aggregate || len(view.Series.Rows) != 2 || len(view.Series.Drivers) != 1 {
		t.Errorf("Unexpected progress: %+v", view.Series)
	}
}

func TestLeagueHandler_ExportCSV(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	w := doRequest(router, http.MethodGet, "/api/standings/2024/1/export.csv", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Unexpected content type: %s", w.Header().Get("Content-Type"))
	}

	records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()

	if err != nil {
		t.Fatal(err)
	}

	expected := [][]string{
		{"Position", "Driver", "Team", "Round 1", "Round 2", "Total"},
		{"1", "Driver B", "Blue", "18", "25", "43"},
		{"2", "Driver A", "Red", "33", "DNF", "33"},
	}

	if len(records) != len(expected) {
		t.Fatalf("Expected %d rows, got %d", len(expected), len(records))
	}

	for i := range expected {
		if strings.Join(records[i], ",") != strings.Join(expected[i], ",") {
			t.Errorf("Row %d: expected %v, got %v", i, expected[i], records[i])
		}
	}
}

func TestLeagueHandler_DriverSummary(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	w := doRequest(router, http.MethodGet, "/api/standings/2024/1/drivers/driver%20a/summary", nil)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Driver A") {
		t.Errorf("Expected a summary for Driver A, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/standings/2024/1/drivers/Nobody/summary", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestLeagueHandler_SearchDrivers(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	// indexes the standings drivers
	doRequest(router, http.MethodGet, "/api/standings/2024/1", nil)

	w := doRequest(router, http.MethodGet, "/api/drivers/search?q=driver%20b", nil)

	var hits []*DriverHit

	if err := json.Unmarshal(w.Body.Bytes(), &hits); err != nil {
		t.Fatal(err)
	}

	if len(hits) == 0 || hits[0].Name != "Driver B" {
		t.Errorf("Expected Driver B first, got %s", w.Body.String())
	}
}

func TestLeagueHandler_Pages(t *testing.T) {
	api := newFakeLeagueAPI(t)
	router := newTestRouter(t, api)

	w := doRequest(router, http.MethodGet, "/", nil)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/standings/2024/1" {
		t.Errorf("Expected a redirect to the watched standings, got %d %s", w.Code, w.Header().Get("Location"))
	}

	w = doRequest(router, http.MethodGet, "/standings/2024/1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()

	for _, expected := range []string{`id="driver-standings"`, `id="constructor-standings"`, `class="dnf"`, "1st", "Driver B"} {
		if !strings.Contains(body, expected) {
			t.Errorf("Expected the page to contain %s", expected)
		}
	}

	w = doRequest(router, http.MethodGet, "/standings/2023/1", nil)

	if w.Code != http.StatusBadGateway || !strings.Contains(w.Body.String(), `id="standings-error"`) {
		t.Errorf("Expected an error message on the page, got %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, newFakeLeagueAPI(t))

	doRequest(router, http.MethodGet, "/api/standings/2024/1", nil)

	w := doRequest(router, http.MethodGet, "/healthcheck.json", nil)

	var resp HealthCheckResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if !resp.OK || resp.NumSnapshots != 1 || resp.NumIndexedDrivers != 2 || len(resp.Watching) != 1 {
		t.Errorf("Unexpected healthcheck: %+v", resp)
	}
}
