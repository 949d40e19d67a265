package league

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-http-utils/etag"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type LeagueHandler struct {
	*BaseHandler

	leagueManager *LeagueManager
}

func NewLeagueHandler(baseHandler *BaseHandler, leagueManager *LeagueManager) *LeagueHandler {
	return &LeagueHandler{
		BaseHandler:   baseHandler,
		leagueManager: leagueManager,
	}
}

// jsonETag lets clients revalidate API responses with If-None-Match.
func jsonETag(next http.Handler) http.Handler {
	return etag.Handler(next, false)
}

// urlParam returns an unescaped chi URL parameter.
func urlParam(r *http.Request, key string) string {
	param := chi.URLParam(r, key)

	if unescaped, err := url.PathUnescape(param); err == nil {
		return unescaped
	}

	return param
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		logrus.WithError(err).Error("couldn't encode json response")
	}
}

type apiError struct {
	Error string `json:"error"`
}

// statusForError is 400 for bad parameters, otherwise 502 as the league API couldn't be used.
func statusForError(err error) int {
	switch errors.Cause(err) {
	case ErrInvalidSeasonDivision, ErrInvalidDriver:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	status := statusForError(err)

	if status >= http.StatusInternalServerError {
		logrus.WithError(err).Errorf("league api request failed")
	}

	writeJSON(w, status, apiError{Error: err.Error()})
}

func parseBoolParam(r *http.Request, key string) (bool, error) {
	value := r.URL.Query().Get(key)

	if value == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(value)

	if err != nil {
		return false, fmt.Errorf("league: %s must be true or false", key)
	}

	return b, nil
}

func parseIntParam(r *http.Request, key string) (int, error) {
	value := r.URL.Query().Get(key)

	if value == "" {
		return 0, nil
	}

	i, err := strconv.Atoi(value)

	if err != nil || i < 0 {
		return 0, fmt.Errorf("league: %s must be a positive number", key)
	}

	return i, nil
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
}

// home redirects to the first watched standings.
func (lh *LeagueHandler) home(w http.ResponseWriter, r *http.Request) {
	watched := lh.leagueManager.Watched()

	if len(watched) > 0 {
		http.Redirect(w, r, "/standings/"+url.PathEscape(watched[0].Season)+"/"+url.PathEscape(watched[0].Division), http.StatusFound)
		return
	}

	lh.viewRenderer.MustLoadTemplate(w, r, "index.html", nil)
}

type standingsTemplateVars struct {
	BaseTemplateVars

	SeasonDivision SeasonDivision
	Dashboard      *Dashboard
	Aggregate      bool
	Error          string
}

// view shows the standings page. API failures are shown on the page rather than as an error page.
func (lh *LeagueHandler) view(w http.ResponseWriter, r *http.Request) {
	season, division := urlParam(r, "season"), urlParam(r, "division")

	aggregate, err := parseBoolParam(r, "aggregate")

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vars := &standingsTemplateVars{
		SeasonDivision: SeasonDivision{Season: season, Division: division},
		Aggregate:      aggregate,
	}

	dashboard, err := lh.leagueManager.Dashboard(r.Context(), season, division, aggregate)

	if err != nil {
		logrus.WithError(err).Errorf("couldn't load standings for %s/%s", season, division)
		vars.Error = "Standings are unavailable right now, please try again later."
		w.WriteHeader(statusForError(err))
	} else {
		vars.Dashboard = dashboard
	}

	lh.viewRenderer.MustLoadTemplate(w, r, "standings.html", vars)
}

func (lh *LeagueHandler) standingsAPI(w http.ResponseWriter, r *http.Request) {
	view, err := lh.leagueManager.Standings(r.Context(), urlParam(r, "season"), urlParam(r, "division"))

	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// exportCSV writes the driver standings as a spreadsheet, one column per round.
func (lh *LeagueHandler) exportCSV(w http.ResponseWriter, r *http.Request) {
	season, division := urlParam(r, "season"), urlParam(r, "division")

	view, err := lh.leagueManager.Standings(r.Context(), season, division)

	if err != nil {
		logrus.WithError(err).Errorf("couldn't export standings for %s/%s", season, division)
		http.Error(w, http.StatusText(statusForError(err)), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="standings-%s-%s.csv"`, url.PathEscape(season), url.PathEscape(division)))

	if err := WriteStandingsCSV(w, view.Standings); err != nil {
		logrus.WithError(err).Error("couldn't write standings csv")
	}
}

func (lh *LeagueHandler) driverSummary(w http.ResponseWriter, r *http.Request) {
	driver := urlParam(r, "driver")

	view, err := lh.leagueManager.Standings(r.Context(), urlParam(r, "season"), urlParam(r, "division"))

	if err != nil {
		http.Error(w, http.StatusText(statusForError(err)), statusForError(err))
		return
	}

	summary := view.Standings.DriverSummary(driver)

	if summary == "" {
		http.Error(w, fmt.Sprintf("%s has no standing in %s", driver, view.SeasonDivision), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, summary)
}

func (lh *LeagueHandler) progressAPI(w http.ResponseWriter, r *http.Request) {
	aggregate, err := parseBoolParam(r, "aggregate")

	if err != nil {
		badRequest(w, err)
		return
	}

	top, err := parseIntParam(r, "top")

	if err != nil {
		badRequest(w, err)
		return
	}

	view, err := lh.leagueManager.Progress(r.Context(), urlParam(r, "season"), urlParam(r, "division"), aggregate, top)

	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (lh *LeagueHandler) dashboardAPI(w http.ResponseWriter, r *http.Request) {
	aggregate, err := parseBoolParam(r, "aggregate")

	if err != nil {
		badRequest(w, err)
		return
	}

	dashboard, err := lh.leagueManager.Dashboard(r.Context(), urlParam(r, "season"), urlParam(r, "division"), aggregate)

	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

func (lh *LeagueHandler) searchDrivers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit")

	if err != nil {
		badRequest(w, err)
		return
	}

	hits, err := lh.leagueManager.Search(r.URL.Query().Get("q"), limit)

	if err != nil {
		logrus.WithError(err).Error("driver search failed")
		writeJSON(w, http.StatusInternalServerError, apiError{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}

	writeJSON(w, http.StatusOK, hits)
}

func (lh *LeagueHandler) matrixAPI(w http.ResponseWriter, r *http.Request) {
	matrix, err := lh.leagueManager.Matrix(r.Context(), urlParam(r, "driver"))

	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matrix)
}

// WriteStandingsCSV writes driver standings with one column per round. DNF rounds are written as "DNF".
func WriteStandingsCSV(w io.Writer, standings *Standings) error {
	writer := csv.NewWriter(w)

	headers := []string{"Position", "Driver", "Team"}

	for _, round := range standings.Rounds {
		headers = append(headers, "Round "+round)
	}

	headers = append(headers, "Total")

	if err := writer.Write(headers); err != nil {
		return err
	}

	for i, driver := range standings.Drivers {
		row := []string{strconv.Itoa(i + 1), driver.Driver, driver.TeamSummary()}

		for _, round := range standings.Rounds {
			row = append(row, cellValue(driver, round))
		}

		row = append(row, formatPoints(driver.TotalPoints))

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}
