package league

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxErrorBodySize limits how much of a failed response body is kept in an error.
const maxErrorBodySize = 512

// Fetcher retrieves raw JSON payloads from the league API.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// APIError is returned when the league API answers with a non-2xx status.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("league: GET %s failed: %d %s", e.Path, e.StatusCode, e.Body)
}

// APIClient talks to the league REST API.
type APIClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewAPIClient(conf APIConfig) *APIClient {
	return &APIClient{
		baseURL:   strings.TrimRight(conf.BaseURL, "/"),
		userAgent: conf.UserAgent,
		http: &http.Client{
			Timeout:   conf.Timeout(),
			Transport: RoundTripper(http.DefaultTransport),
		},
	}
}

func (c *APIClient) Fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)

	if err != nil {
		return nil, errors.Wrapf(err, "league: could not build request for %s", path)
	}

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logrus.Debugf("fetching league api path: %s", path)

	resp, err := c.http.Do(req)

	if err != nil {
		return nil, errors.Wrapf(err, "league: GET %s", path)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := ioutil.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

		return nil, &APIError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := ioutil.ReadAll(utfbom.SkipOnly(resp.Body))

	if err != nil {
		return nil, errors.Wrapf(err, "league: could not read response for %s", path)
	}

	return body, nil
}

// Races fetches the races for a season and division.
func (c *APIClient) Races(ctx context.Context, season, division string) ([]*RaceRecord, error) {
	data, err := c.Fetch(ctx, RacesPath(season, division))

	if err != nil {
		return nil, err
	}

	return DecodeRaces(data), nil
}

// ProgressSteps fetches the cumulative standings steps for a season and division.
func (c *APIClient) ProgressSteps(ctx context.Context, season, division string, aggregate bool) ([]*ProgressStep, error) {
	data, err := c.Fetch(ctx, ProgressPath(season, division, aggregate))

	if err != nil {
		return nil, err
	}

	return DecodeProgressSteps(data), nil
}

// DriverRaces fetches a driver's race history.
func (c *APIClient) DriverRaces(ctx context.Context, driver string) ([]*RaceRecord, error) {
	data, err := c.Fetch(ctx, DriverRacesPath(driver))

	if err != nil {
		return nil, err
	}

	return DecodeRaces(data), nil
}

func RacesPath(season, division string) string {
	return "/races/" + url.PathEscape(season) + "/" + url.PathEscape(division)
}

func ProgressPath(season, division string, aggregate bool) string {
	return "/standings/" + url.PathEscape(season) + "/" + url.PathEscape(division) + "/progress?aggregate=" + strconv.FormatBool(aggregate)
}

func DriverRacesPath(driver string) string {
	return "/drivers/" + url.PathEscape(driver) + "/races"
}

const DriversPath = "/drivers"
