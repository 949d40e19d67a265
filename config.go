package league

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
	"gopkg.in/yaml.v2"
)

type Configuration struct {
	HTTP       HTTPConfig       `yaml:"http"`
	API        APIConfig        `yaml:"api"`
	Store      StoreConfig      `yaml:"store"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Progress   ProgressConfig   `yaml:"progress"`
	Live       LiveConfig       `yaml:"live"`
}

type HTTPConfig struct {
	Hostname    string `yaml:"hostname"`
	BaseURL     string `yaml:"base_url"`
	ViewsDir    string `yaml:"views_dir"`
	OpenBrowser bool   `yaml:"open_browser"`

	ShortenDriverNames bool `yaml:"shorten_driver_names"`
}

type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutS  int    `yaml:"timeout_s"`
	UserAgent string `yaml:"user_agent"`
}

func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutS) * time.Second
}

type MonitoringConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SentryDSN string `yaml:"sentry_dsn"`
}

type ProgressConfig struct {
	TopDrivers int `yaml:"top_drivers"`
}

// SeasonDivision identifies one points competition within a season.
type SeasonDivision struct {
	Season   string `yaml:"season" json:"season"`
	Division string `yaml:"division" json:"division"`
}

func (sd SeasonDivision) String() string {
	return sd.Season + "/" + sd.Division
}

type LiveConfig struct {
	RefreshIntervalS int              `yaml:"refresh_interval_s"`
	Watch            []SeasonDivision `yaml:"watch"`
}

func (l LiveConfig) IsEnabled() bool {
	return l.RefreshIntervalS > 0 && len(l.Watch) > 0
}

func (l LiveConfig) Interval() time.Duration {
	return time.Duration(l.RefreshIntervalS) * time.Second
}

type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

func (s *StoreConfig) BuildStore() (Store, error) {
	switch s.Type {
	case "boltdb":
		bbdb, err := bbolt.Open(s.Path, 0644, &bbolt.Options{Timeout: time.Second})

		if err != nil {
			return nil, err
		}

		return NewBoltStore(bbdb), nil
	case "json":
		return NewJSONStore(s.Path), nil
	default:
		return nil, fmt.Errorf("invalid store type (%s), must be either boltdb/json", s.Type)
	}
}

const (
	defaultHostname   = "0.0.0.0:8772"
	defaultAPITimeout = 10
	defaultUserAgent  = "league-standings/1.0"
)

func (c *Configuration) applyDefaults() {
	if c.HTTP.Hostname == "" {
		c.HTTP.Hostname = defaultHostname
	}

	if c.HTTP.ViewsDir == "" {
		c.HTTP.ViewsDir = "views"
	}

	if c.API.TimeoutS <= 0 {
		c.API.TimeoutS = defaultAPITimeout
	}

	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}

	if c.Store.Type == "" {
		c.Store.Type = "boltdb"
	}

	if c.Store.Path == "" {
		c.Store.Path = "league.db"
	}

	if c.Progress.TopDrivers <= 0 {
		c.Progress.TopDrivers = DefaultProgressDrivers
	}
}

func ReadConfig(location string) (conf *Configuration, err error) {
	f, err := os.Open(location)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&conf); err != nil {
		return nil, err
	}

	if conf == nil {
		conf = &Configuration{}
	}

	conf.applyDefaults()

	if conf.API.BaseURL == "" {
		return nil, fmt.Errorf("league: api.base_url must be set in %s", location)
	}

	if conf.Live.RefreshIntervalS > 0 && len(conf.Live.Watch) == 0 {
		logrus.Warnf("live.refresh_interval_s is set but no season/divisions are watched, live updates are disabled")
	}

	return conf, nil
}
