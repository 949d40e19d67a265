package league

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
)

// MaxLogSizeBytes is how much of the log is kept in memory for /api/logs.
const MaxLogSizeBytes = 1e6

var (
	logOutput = newLogBuffer(MaxLogSizeBytes)

	logMultiWriter io.Writer

	Debug = os.Getenv("DEBUG") == "true"
)

func InitLogging() {
	if !Debug {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logFile, err := os.OpenFile("league-standings.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)

	if err == nil {
		logMultiWriter = io.MultiWriter(os.Stdout, logOutput, logFile)
	} else {
		logrus.WithError(err).Errorf("Could not create league-standings log file")
		logMultiWriter = io.MultiWriter(os.Stdout, logOutput)
	}

	logrus.SetOutput(logMultiWriter)
}

func newLogBuffer(maxSize int) *logBuffer {
	return &logBuffer{
		size: maxSize,
		buf:  new(bytes.Buffer),
	}
}

// logBuffer keeps roughly the last size bytes written to it.
type logBuffer struct {
	buf *bytes.Buffer

	size  int
	mutex sync.Mutex
}

func (lb *logBuffer) Write(p []byte) (n int, err error) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	b := lb.buf.Bytes()

	if len(b) > lb.size {
		lb.buf = bytes.NewBuffer(b[len(b)-lb.size:])
	}

	return lb.buf.Write(p)
}

func (lb *logBuffer) String() string {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	return lb.buf.String()
}

func Router(
	leagueHandler *LeagueHandler,
	liveHub *LiveHub,
	healthCheck *HealthCheck,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(panicHandler)

	r.Handle("/metrics", prometheusMonitoringHandler())
	r.Handle("/healthcheck.json", healthCheck)

	if Debug {
		r.Mount("/debug/", middleware.Profiler())
	}

	// pages
	r.Get("/", leagueHandler.home)
	r.Get("/standings/{season}/{division}", leagueHandler.view)

	// api
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jsonETag)

			r.Get("/standings/{season}/{division}", leagueHandler.standingsAPI)
			r.Get("/progress/{season}/{division}", leagueHandler.progressAPI)
			r.Get("/dashboard/{season}/{division}", leagueHandler.dashboardAPI)
			r.Get("/drivers/search", leagueHandler.searchDrivers)
			r.Get("/drivers/{driver}/matrix", leagueHandler.matrixAPI)
		})

		r.Get("/standings/{season}/{division}/export.csv", leagueHandler.exportCSV)
		r.Get("/standings/{season}/{division}/drivers/{driver}/summary", leagueHandler.driverSummary)
		r.Get("/logs", logsAPI)
		r.Handle("/live", liveHub)
	})

	return prometheusMonitoringWrapper(r)
}

func logsAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, logOutput.String())
}
