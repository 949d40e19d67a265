package league

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidSeasonDivision = errors.New("league: season and division must be set")
	ErrInvalidDriver         = errors.New("league: driver must be set")
	ErrInvalidPayload        = errors.New("league: api response is not a json array")
)

// lastRefreshMetaKey holds the time of the last completed Refresh.
const lastRefreshMetaKey = "last-refresh"

// LeagueManager serves standings, season progress and position matrices built from the
// league API. The last good API payload for every path is kept in the Store and served
// (marked stale) when the API can't be reached.
type LeagueManager struct {
	fetcher     Fetcher
	store       Store
	index       *DriverIndex
	broadcaster Broadcaster

	topDrivers int
	watch      []SeasonDivision

	mutex     sync.Mutex
	published map[string][]byte
}

func NewLeagueManager(fetcher Fetcher, store Store, index *DriverIndex, broadcaster Broadcaster, topDrivers int, watch []SeasonDivision) *LeagueManager {
	if broadcaster == nil {
		broadcaster = NilBroadcaster{}
	}

	if topDrivers <= 0 {
		topDrivers = DefaultProgressDrivers
	}

	return &LeagueManager{
		fetcher:     fetcher,
		store:       store,
		index:       index,
		broadcaster: broadcaster,
		topDrivers:  topDrivers,
		watch:       watch,
		published:   make(map[string][]byte),
	}
}

// Watched is the list of season/divisions refreshed by Watch.
func (lm *LeagueManager) Watched() []SeasonDivision {
	return lm.watch
}

// fetch loads path from the API, falling back to the stored snapshot if the API fails or
// answers with anything other than a JSON array. The returned bool is true when the snapshot was used.
func (lm *LeagueManager) fetch(ctx context.Context, path string) (*Snapshot, bool, error) {
	data, err := lm.fetcher.Fetch(ctx, path)

	if err == nil && !isJSONArray(data) {
		err = pkgerrors.Wrapf(ErrInvalidPayload, "GET %s", path)
	}

	if err == nil {
		snapshot := &Snapshot{
			Key:     path,
			Payload: data,
			Fetched: time.Now(),
		}

		if err := lm.store.UpsertSnapshot(snapshot); err != nil {
			logrus.WithError(err).Warnf("could not store snapshot for %s", path)
		}

		return snapshot, false, nil
	}

	if ctx.Err() != nil {
		return nil, false, err
	}

	logrus.WithError(err).Warnf("could not fetch %s from league api, trying stored snapshot", path)

	snapshot, snapshotErr := lm.store.LoadSnapshot(path)

	if snapshotErr != nil {
		if pkgerrors.Cause(snapshotErr) != ErrSnapshotNotFound {
			logrus.WithError(snapshotErr).Errorf("could not load snapshot for %s", path)
		}

		return nil, false, err
	}

	snapshotFallbackCounter.Inc()

	return snapshot, true, nil
}

func isJSONArray(data []byte) bool {
	var items []json.RawMessage

	return json.Unmarshal(data, &items) == nil && items != nil
}

// StandingsView is a season/division's standings and where they came from.
type StandingsView struct {
	SeasonDivision

	Standings *Standings `json:"standings"`
	Fetched   time.Time  `json:"fetched"`
	Stale     bool       `json:"stale"`
}

func validSeasonDivision(season, division string) bool {
	return strings.TrimSpace(season) != "" && strings.TrimSpace(division) != ""
}

func (lm *LeagueManager) Standings(ctx context.Context, season, division string) (*StandingsView, error) {
	if !validSeasonDivision(season, division) {
		return nil, ErrInvalidSeasonDivision
	}

	snapshot, stale, err := lm.fetch(ctx, RacesPath(season, division))

	if err != nil {
		return nil, err
	}

	standings := BuildStandings(DecodeRaces(snapshot.Payload))

	if lm.index != nil {
		names := make([]string, 0, len(standings.Drivers))

		for _, driver := range standings.Drivers {
			names = append(names, driver.Driver)
		}

		if err := lm.index.IndexNames(names); err != nil {
			logrus.WithError(err).Warn("could not index standings drivers")
		}
	}

	return &StandingsView{
		SeasonDivision: SeasonDivision{Season: season, Division: division},
		Standings:      standings,
		Fetched:        snapshot.Fetched,
		Stale:          stale,
	}, nil
}

// ProgressView is a season progress chart and where it came from.
type ProgressView struct {
	SeasonDivision

	Aggregate bool            `json:"aggregate"`
	Series    *ProgressSeries `json:"series"`
	Fetched   time.Time       `json:"fetched"`
	Stale     bool            `json:"stale"`
}

// Progress builds the season progress chart. topN <= 0 uses the configured number of drivers.
func (lm *LeagueManager) Progress(ctx context.Context, season, division string, aggregate bool, topN int) (*ProgressView, error) {
	if !validSeasonDivision(season, division) {
		return nil, ErrInvalidSeasonDivision
	}

	if topN <= 0 {
		topN = lm.topDrivers
	}

	snapshot, stale, err := lm.fetch(ctx, ProgressPath(season, division, aggregate))

	if err != nil {
		return nil, err
	}

	return &ProgressView{
		SeasonDivision: SeasonDivision{Season: season, Division: division},
		Aggregate:      aggregate,
		Series:         BuildSeasonProgress(DecodeProgressSteps(snapshot.Payload), aggregate, topN),
		Fetched:        snapshot.Fetched,
		Stale:          stale,
	}, nil
}

// Matrix builds a driver's start/finish position matrix from their race history.
func (lm *LeagueManager) Matrix(ctx context.Context, driver string) (*PositionMatrix, error) {
	if strings.TrimSpace(driver) == "" {
		return nil, ErrInvalidDriver
	}

	snapshot, _, err := lm.fetch(ctx, DriverRacesPath(driver))

	if err != nil {
		return nil, err
	}

	return BuildPositionMatrix(DecodeRaces(snapshot.Payload), driver), nil
}

// Dashboard is everything the standings page shows.
type Dashboard struct {
	Standings *StandingsView `json:"standings"`
	Progress  *ProgressView  `json:"progress"`
}

// Dashboard loads standings and progress concurrently.
func (lm *LeagueManager) Dashboard(ctx context.Context, season, division string, aggregate bool) (*Dashboard, error) {
	if !validSeasonDivision(season, division) {
		return nil, ErrInvalidSeasonDivision
	}

	var dashboard Dashboard

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		dashboard.Standings, err = lm.Standings(ctx, season, division)
		return err
	})

	g.Go(func() (err error) {
		dashboard.Progress, err = lm.Progress(ctx, season, division, aggregate, 0)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dashboard, nil
}

// Search looks up drivers by name.
func (lm *LeagueManager) Search(q string, limit int) ([]*DriverHit, error) {
	if lm.index == nil {
		return []*DriverHit{}, nil
	}

	return lm.index.Search(q, limit)
}

// ReindexDrivers loads the driver list from the league API into the search index.
func (lm *LeagueManager) ReindexDrivers(ctx context.Context) error {
	if lm.index == nil {
		return nil
	}

	snapshot, _, err := lm.fetch(ctx, DriversPath)

	if err != nil {
		return pkgerrors.Wrap(err, "league: could not load drivers")
	}

	profiles := DecodeDriverProfiles(snapshot.Payload)

	if err := lm.index.Index(profiles); err != nil {
		return err
	}

	logrus.Debugf("indexed %d drivers", len(profiles))

	return nil
}

// Refresh reloads every watched season/division, broadcasting the standings of any that changed.
func (lm *LeagueManager) Refresh(ctx context.Context) error {
	var firstErr error

	for _, sd := range lm.watch {
		view, err := lm.Standings(ctx, sd.Season, sd.Division)

		if err != nil {
			logrus.WithError(err).Errorf("could not refresh standings for %s", sd)

			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		if !lm.changed(sd, view.Standings) {
			continue
		}

		err = lm.broadcaster.Send(&LiveUpdate{
			SeasonDivision: sd,
			Standings:      view.Standings,
			Updated:        view.Fetched,
			Stale:          view.Stale,
		})

		if err != nil {
			logrus.WithError(err).Warnf("could not broadcast standings for %s", sd)
		}
	}

	if err := lm.ReindexDrivers(ctx); err != nil {
		logrus.WithError(err).Warn("could not reindex drivers")
	}

	if err := lm.store.SetMeta(lastRefreshMetaKey, time.Now()); err != nil {
		logrus.WithError(err).Warn("could not store last refresh time")
	}

	return firstErr
}

// changed records standings as published, reporting whether they differ from the last publish.
func (lm *LeagueManager) changed(sd SeasonDivision, standings *Standings) bool {
	encoded, err := json.Marshal(standings)

	if err != nil {
		return true
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if previous, ok := lm.published[sd.String()]; ok && bytes.Equal(previous, encoded) {
		return false
	}

	lm.published[sd.String()] = encoded

	return true
}

// LastRefresh is when Refresh last completed, zero if it never has.
func (lm *LeagueManager) LastRefresh() time.Time {
	var t time.Time

	if err := lm.store.GetMeta(lastRefreshMetaKey, &t); err != nil && pkgerrors.Cause(err) != ErrValueNotSet {
		logrus.WithError(err).Debug("could not load last refresh time")
	}

	return t
}

// Watch refreshes the watched season/divisions every interval until ctx is done.
func (lm *LeagueManager) Watch(ctx context.Context, interval time.Duration) {
	if len(lm.watch) == 0 || interval <= 0 {
		return
	}

	refresh := func() {
		capturePanics(func() {
			_ = lm.Refresh(ctx)
		})
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
