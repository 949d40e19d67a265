package league

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ID is an identifier issued by the league API. The API sends both numeric and string IDs,
// so both decode into an ID.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string

		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*id = ID(s)
		return nil
	}

	var n json.Number

	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	*id = ID(n.String())

	return nil
}

func (id ID) String() string {
	return string(id)
}

// Flag is a "Yes"/"No" style value. "Yes" and "DNF" are true, everything else is false.
// JSON booleans are accepted too.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v interface{}

	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch x := v.(type) {
	case bool:
		*f = Flag(x)
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "yes", "dnf", "true":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}

	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"Yes"`), nil
	}

	return []byte(`"No"`), nil
}

// NameRef is a driver or team reference. The API sends either a plain string or an
// object carrying a name.
type NameRef struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
}

func (n *NameRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = NameRef{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string

		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*n = NameRef{Name: s}
	case '{':
		var obj struct {
			ID   ID     `json:"id"`
			Name string `json:"name"`
		}

		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}

		*n = NameRef{ID: obj.ID, Name: obj.Name}
	default:
		// numbers, arrays etc. carry no usable name
		*n = NameRef{}
	}

	return nil
}

// Track is where a race took place.
type Track struct {
	ID          ID     `json:"id"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Name        string `json:"name"`
}

// RaceRecord is one scheduled session (main race or sprint) within a round.
type RaceRecord struct {
	ID          ID                  `json:"id"`
	Round       int                 `json:"round"`
	Sprint      Flag                `json:"sprint"`
	Track       *Track              `json:"track"`
	RaceResults []*RaceResultRecord `json:"raceResults"`
}

// UnmarshalJSON decodes result rows one at a time, dropping any row that fails to decode
// rather than the whole race.
func (r *RaceRecord) UnmarshalJSON(data []byte) error {
	type plain RaceRecord

	var aux struct {
		plain
		RaceResults []json.RawMessage `json:"raceResults"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = RaceRecord(aux.plain)
	r.RaceResults = make([]*RaceResultRecord, 0, len(aux.RaceResults))

	for i, item := range aux.RaceResults {
		var result *RaceResultRecord

		if err := json.Unmarshal(item, &result); err != nil {
			logrus.WithError(err).Debugf("race %s: skipping malformed result at index %d", r.ID, i)
			continue
		}

		if result != nil {
			r.RaceResults = append(r.RaceResults, result)
		}
	}

	return nil
}

// RoundKey is the stringified round number used as a standings column key.
func (r *RaceRecord) RoundKey() string {
	return strconv.Itoa(r.Round)
}

func (r *RaceRecord) TrackName() string {
	if r.Track == nil {
		return ""
	}

	return r.Track.Name
}

// RaceResultRecord is one driver's outcome in one RaceRecord.
type RaceResultRecord struct {
	Position           *int    `json:"position"`
	QualifyingPosition *int    `json:"qualifyingPosition"`
	Points             float64 `json:"points"`
	DNF                Flag    `json:"dnf"`
	Driver             NameRef `json:"driver"`
	Team               NameRef `json:"team"`

	// flat fallbacks sent by some endpoints instead of a driver object
	DriverName string `json:"driverName,omitempty"`
	Name       string `json:"name,omitempty"`
}

func (r *RaceResultRecord) UnmarshalJSON(data []byte) error {
	type plain RaceResultRecord

	var aux struct {
		plain
		Grid *int `json:"grid"`
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = RaceResultRecord(aux.plain)

	if r.QualifyingPosition == nil {
		r.QualifyingPosition = aux.Grid
	}

	return nil
}

// DriverDisplayName is the name shown in standings, "Unknown" when none is given.
func (r *RaceResultRecord) DriverDisplayName() string {
	return displayName(r.Driver.Name)
}

// TeamDisplayName is the team shown in standings, "Unknown" when none is given.
func (r *RaceResultRecord) TeamDisplayName() string {
	return displayName(r.Team.Name)
}

// DriverLookupName tries every field a driver name may live in, returning "" if none are set.
func (r *RaceResultRecord) DriverLookupName() string {
	return FirstNonEmpty(r.Driver.Name, r.DriverName, r.Name)
}

// DecodeRaces decodes a JSON array of races. Anything else is treated as "no races".
func DecodeRaces(data []byte) []*RaceRecord {
	var raw []json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		logrus.WithError(err).Debug("race payload is not an array, treating as empty")
		return []*RaceRecord{}
	}

	races := make([]*RaceRecord, 0, len(raw))

	for i, item := range raw {
		var race *RaceRecord

		if err := json.Unmarshal(item, &race); err != nil {
			logrus.WithError(err).Debugf("skipping malformed race at index %d", i)
			continue
		}

		if race == nil {
			continue
		}

		results := race.RaceResults[:0]

		for _, result := range race.RaceResults {
			if result != nil {
				results = append(results, result)
			}
		}

		race.RaceResults = results
		races = append(races, race)
	}

	return races
}
