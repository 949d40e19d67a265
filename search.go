package league

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50

	searchField = "normalised"
)

// DriverProfile is a driver as listed by the league API's /drivers endpoint.
type DriverProfile struct {
	ID          ID      `json:"id,omitempty"`
	Name        string  `json:"name"`
	Nationality string  `json:"nationality,omitempty"`
	Team        NameRef `json:"team"`
}

// DecodeDriverProfiles decodes a JSON array of drivers. Entries without a name are skipped.
func DecodeDriverProfiles(data []byte) []*DriverProfile {
	var raw []json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		logrus.WithError(err).Debug("driver payload is not an array, treating as empty")
		return []*DriverProfile{}
	}

	profiles := make([]*DriverProfile, 0, len(raw))

	for i, item := range raw {
		var profile *DriverProfile

		if err := json.Unmarshal(item, &profile); err != nil {
			logrus.WithError(err).Debugf("skipping malformed driver at index %d", i)
			continue
		}

		if profile == nil || FirstNonEmpty(profile.Name) == "" {
			continue
		}

		profile.Name = FirstNonEmpty(profile.Name)
		profiles = append(profiles, profile)
	}

	return profiles
}

// DriverHit is a driver search result.
type DriverHit struct {
	*DriverProfile

	Score float64 `json:"score"`
}

// DriverIndex is an in-memory full text index of driver names. Names are indexed
// without accents, so "perez" finds "Sergio Pérez".
type DriverIndex struct {
	index bleve.Index

	mutex    sync.RWMutex
	profiles map[string]*DriverProfile
}

func NewDriverIndex() (*DriverIndex, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())

	if err != nil {
		return nil, errors.Wrap(err, "league: could not create driver index")
	}

	return &DriverIndex{
		index:    index,
		profiles: make(map[string]*DriverProfile),
	}, nil
}

func (di *DriverIndex) document(profile *DriverProfile) map[string]interface{} {
	return map[string]interface{}{
		"name":        profile.Name,
		searchField:   NormaliseName(profile.Name),
		"team":        profile.Team.Name,
		"nationality": profile.Nationality,
	}
}

// Index adds or replaces driver profiles. Profiles are keyed by their normalised name.
func (di *DriverIndex) Index(profiles []*DriverProfile) error {
	di.mutex.Lock()
	defer di.mutex.Unlock()

	batch := di.index.NewBatch()

	for _, profile := range profiles {
		if profile == nil {
			continue
		}

		key := NormaliseName(profile.Name)

		if key == "" {
			continue
		}

		if err := batch.Index(key, di.document(profile)); err != nil {
			return errors.Wrapf(err, "league: could not index driver %s", profile.Name)
		}

		di.profiles[key] = profile
	}

	return di.index.Batch(batch)
}

// IndexNames adds drivers known only by name, such as those found in standings.
// Names which already have a profile are left alone.
func (di *DriverIndex) IndexNames(names []string) error {
	var profiles []*DriverProfile

	di.mutex.RLock()

	for _, name := range names {
		if name == UnknownName {
			continue
		}

		if _, ok := di.profiles[NormaliseName(name)]; ok {
			continue
		}

		profiles = append(profiles, &DriverProfile{Name: name})
	}

	di.mutex.RUnlock()

	if len(profiles) == 0 {
		return nil
	}

	return di.Index(profiles)
}

// Len is the number of indexed drivers.
func (di *DriverIndex) Len() int {
	di.mutex.RLock()
	defer di.mutex.RUnlock()

	return len(di.profiles)
}

// Search finds drivers matching q by whole words, word prefixes and near misses of the last word.
func (di *DriverIndex) Search(q string, limit int) ([]*DriverHit, error) {
	normalised := NormaliseName(q)

	if normalised == "" {
		return []*DriverHit{}, nil
	}

	if limit <= 0 {
		limit = defaultSearchLimit
	} else if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	words := strings.Fields(normalised)
	lastWord := words[len(words)-1]

	match := bleve.NewMatchQuery(normalised)
	match.SetField(searchField)

	prefix := bleve.NewPrefixQuery(lastWord)
	prefix.SetField(searchField)

	fuzzy := bleve.NewFuzzyQuery(lastWord)
	fuzzy.SetField(searchField)
	fuzzy.SetFuzziness(1)

	request := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(match, prefix, fuzzy), limit, 0, false)

	di.mutex.RLock()
	defer di.mutex.RUnlock()

	result, err := di.index.Search(request)

	if err != nil {
		return nil, errors.Wrapf(err, "league: driver search for %q failed", q)
	}

	hits := make([]*DriverHit, 0, len(result.Hits))

	for _, hit := range result.Hits {
		profile, ok := di.profiles[hit.ID]

		if !ok {
			continue
		}

		hits = append(hits, &DriverHit{DriverProfile: profile, Score: hit.Score})
	}

	return hits, nil
}

func (di *DriverIndex) Close() error {
	return di.index.Close()
}
