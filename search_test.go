package league

import (
	"testing"
)

func newTestDriverIndex(t *testing.T) *DriverIndex {
	index, err := NewDriverIndex()

	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		_ = index.Close()
	})

	err = index.Index(DecodeDriverProfiles([]byte(`[
		{"id": 1, "name": "Lewis Hamilton", "team": {"name": "Mercedes"}},
		{"id": 11, "name": "Sergio Pérez", "team": "Red Bull"},
		{"id": 33, "name": "Max Verstappen", "team": "Red Bull"},
		{"id": 16, "name": "Charles Leclerc", "team": "Ferrari"}
	]`)))

	if err != nil {
		t.Fatal(err)
	}

	return index
}

type driverSearchTest struct {
	query    string
	expected string
}

func TestDriverIndex_Search(t *testing.T) {
	index := newTestDriverIndex(t)

	fixtures := []driverSearchTest{
		{query: "perez", expected: "Sergio Pérez"},
		{query: "PÉREZ", expected: "Sergio Pérez"},
		{query: "ham", expected: "Lewis Hamilton"},
		{query: "verstapen", expected: "Max Verstappen"},
		{query: "charles lec", expected: "Charles Leclerc"},
	}

	for _, x := range fixtures {
		hits, err := index.Search(x.query, 0)

		if err != nil {
			t.Errorf("%s: search failed: %s", x.query, err)
			continue
		}

		if len(hits) == 0 || hits[0].Name != x.expected {
			t.Logf("%s: expected %s first, got %v", x.query, x.expected, hits)
			t.Fail()
		}
	}
}

func TestDriverIndex_SearchEmpty(t *testing.T) {
	index := newTestDriverIndex(t)

	hits, err := index.Search("   ", 0)

	if err != nil {
		t.Fatal(err)
	}

	if hits == nil || len(hits) != 0 {
		t.Errorf("Expected no hits for an empty query, got %v", hits)
	}

	hits, err = index.Search("zzzzzz", 0)

	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 0 {
		t.Errorf("Expected no hits, got %v", hits)
	}
}

func TestDriverIndex_IndexNames(t *testing.T) {
	index := newTestDriverIndex(t)

	if err := index.IndexNames([]string{"Lando Norris", UnknownName, "sergio perez"}); err != nil {
		t.Fatal(err)
	}

	// Unknown is skipped, and Sergio Pérez already has a profile
	if index.Len() != 5 {
		t.Errorf("Expected 5 drivers, got %d", index.Len())
	}

	hits, err := index.Search("norris", 1)

	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 1 || hits[0].Name != "Lando Norris" {
		t.Errorf("Expected Lando Norris, got %v", hits)
	}

	hits, err = index.Search("perez", 0)

	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 1 || hits[0].Team.Name != "Red Bull" {
		t.Errorf("Expected the existing profile to be kept, got %v", hits)
	}
}
