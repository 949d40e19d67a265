package league

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"
)

var LaunchTime = time.Now()

type HealthCheck struct {
	leagueManager *LeagueManager
	store         Store
	index         *DriverIndex
	liveHub       *LiveHub
}

func NewHealthCheck(leagueManager *LeagueManager, store Store, index *DriverIndex, liveHub *LiveHub) *HealthCheck {
	return &HealthCheck{
		leagueManager: leagueManager,
		store:         store,
		index:         index,
		liveHub:       liveHub,
	}
}

type HealthCheckResponse struct {
	OK      bool
	Version string

	OS            string
	NumCPU        int
	NumGoroutines int
	Uptime        string
	GoVersion     string

	NumSnapshots      int
	OldestSnapshot    string
	LastRefresh       string
	NumIndexedDrivers int
	NumLiveClients    int
	Watching          []SeasonDivision
}

func (h *HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthCheckResponse{
		OK:            true,
		OS:            runtime.GOOS + "/" + runtime.GOARCH,
		Version:       BuildVersion,
		NumCPU:        runtime.NumCPU(),
		NumGoroutines: runtime.NumGoroutine(),
		Uptime:        durafmt.ParseShort(time.Since(LaunchTime)).String(),
		GoVersion:     runtime.Version(),
		Watching:      h.leagueManager.Watched(),
	}

	snapshots, err := h.store.ListSnapshots()

	if err != nil {
		logrus.WithError(err).Error("healthcheck: could not list snapshots")
		resp.OK = false
	} else {
		resp.NumSnapshots = len(snapshots)

		var oldest time.Time

		for _, snapshot := range snapshots {
			if oldest.IsZero() || snapshot.Fetched.Before(oldest) {
				oldest = snapshot.Fetched
			}
		}

		if !oldest.IsZero() {
			resp.OldestSnapshot = humanize.Time(oldest)
		}
	}

	if lastRefresh := h.leagueManager.LastRefresh(); !lastRefresh.IsZero() {
		resp.LastRefresh = humanize.Time(lastRefresh)
	}

	if h.index != nil {
		resp.NumIndexedDrivers = h.index.Len()
	}

	if h.liveHub != nil {
		resp.NumLiveClients = h.liveHub.NumClients()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
