package league

import (
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	snapshotsDir = "snapshots"
	metaDir      = "meta"
)

func NewJSONStore(dir string) Store {
	return &JSONStore{
		base: dir,
	}
}

// JSONStore keeps one indented JSON file per snapshot under a base directory.
type JSONStore struct {
	base string

	mutex sync.RWMutex
}

func (rs *JSONStore) listFiles(dir string) ([]string, error) {
	files, err := ioutil.ReadDir(dir)

	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var list []string

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		list = append(list, strings.TrimSuffix(file.Name(), ".json"))
	}

	return list, nil
}

func (rs *JSONStore) encodeFile(path string, filename string, data interface{}) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	filename = filepath.Join(path, filename)

	dir := filepath.Dir(filename)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0755)

		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	f, err := os.Create(filename)

	if err != nil {
		return err
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(data)
}

func (rs *JSONStore) decodeFile(path string, filename string, out interface{}) error {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()

	filename = filepath.Join(path, filename)

	f, err := os.Open(filename)

	if err != nil {
		return err
	}

	defer f.Close()

	return json.NewDecoder(f).Decode(out)
}

// snapshot keys are API paths, so they are escaped into a single file name.
func snapshotFileName(key string) string {
	return url.QueryEscape(key) + ".json"
}

func (rs *JSONStore) UpsertSnapshot(s *Snapshot) error {
	s.Updated = time.Now()

	return rs.encodeFile(rs.base, filepath.Join(snapshotsDir, snapshotFileName(s.Key)), s)
}

func (rs *JSONStore) LoadSnapshot(key string) (*Snapshot, error) {
	var snapshot *Snapshot

	err := rs.decodeFile(rs.base, filepath.Join(snapshotsDir, snapshotFileName(key)), &snapshot)

	if os.IsNotExist(err) {
		return nil, ErrSnapshotNotFound
	} else if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (rs *JSONStore) ListSnapshots() ([]*Snapshot, error) {
	files, err := rs.listFiles(filepath.Join(rs.base, snapshotsDir))

	if err != nil {
		return nil, err
	}

	var snapshots []*Snapshot

	for _, file := range files {
		var snapshot *Snapshot

		if err := rs.decodeFile(rs.base, filepath.Join(snapshotsDir, file+".json"), &snapshot); err != nil {
			continue
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (rs *JSONStore) DeleteSnapshot(key string) error {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	err := os.Remove(filepath.Join(rs.base, snapshotsDir, snapshotFileName(key)))

	if os.IsNotExist(err) {
		return nil
	}

	return err
}

func (rs *JSONStore) SetMeta(key string, value interface{}) error {
	return rs.encodeFile(rs.base, filepath.Join(metaDir, key+".json"), value)
}

func (rs *JSONStore) GetMeta(key string, out interface{}) error {
	err := rs.decodeFile(rs.base, filepath.Join(metaDir, key+".json"), out)

	if os.IsNotExist(err) {
		return ErrValueNotSet
	}

	return err
}
