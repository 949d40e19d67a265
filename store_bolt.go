package league

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(db *bbolt.DB) Store {
	return &BoltStore{db: db}
}

var (
	snapshotsBucketName = []byte("snapshots")
	metaBucketName      = []byte("meta")
)

func (rs *BoltStore) bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	if !tx.Writable() {
		bkt := tx.Bucket(name)

		if bkt == nil {
			return nil, bbolt.ErrBucketNotFound
		}

		return bkt, nil
	}

	return tx.CreateBucketIfNotExists(name)
}

func (rs *BoltStore) encode(data interface{}) ([]byte, error) {
	return json.Marshal(data)
}

func (rs *BoltStore) decode(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

func (rs *BoltStore) UpsertSnapshot(s *Snapshot) error {
	return rs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := rs.bucket(tx, snapshotsBucketName)

		if err != nil {
			return err
		}

		s.Updated = time.Now()

		encoded, err := rs.encode(s)

		if err != nil {
			return err
		}

		return bkt.Put([]byte(s.Key), encoded)
	})
}

func (rs *BoltStore) LoadSnapshot(key string) (*Snapshot, error) {
	var snapshot *Snapshot

	err := rs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := rs.bucket(tx, snapshotsBucketName)

		if err == bbolt.ErrBucketNotFound {
			return ErrSnapshotNotFound
		} else if err != nil {
			return err
		}

		data := bkt.Get([]byte(key))

		if data == nil {
			return ErrSnapshotNotFound
		}

		return rs.decode(data, &snapshot)
	})

	return snapshot, err
}

func (rs *BoltStore) ListSnapshots() ([]*Snapshot, error) {
	var snapshots []*Snapshot

	err := rs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := rs.bucket(tx, snapshotsBucketName)

		if err == bbolt.ErrBucketNotFound {
			return nil
		} else if err != nil {
			return err
		}

		return bkt.ForEach(func(k, v []byte) error {
			var snapshot *Snapshot

			if err := rs.decode(v, &snapshot); err != nil {
				return err
			}

			snapshots = append(snapshots, snapshot)

			return nil
		})
	})

	return snapshots, err
}

func (rs *BoltStore) DeleteSnapshot(key string) error {
	return rs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := rs.bucket(tx, snapshotsBucketName)

		if err != nil {
			return err
		}

		return bkt.Delete([]byte(key))
	})
}

func (rs *BoltStore) SetMeta(key string, value interface{}) error {
	return rs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := rs.bucket(tx, metaBucketName)

		if err != nil {
			return err
		}

		enc, err := rs.encode(value)

		if err != nil {
			return err
		}

		return bkt.Put([]byte(key), enc)
	})
}

func (rs *BoltStore) GetMeta(key string, out interface{}) error {
	return rs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := rs.bucket(tx, metaBucketName)

		if err == bbolt.ErrBucketNotFound {
			return ErrValueNotSet
		} else if err != nil {
			return err
		}

		val := bkt.Get([]byte(key))

		if val == nil {
			return ErrValueNotSet
		}

		return rs.decode(val, out)
	})
}

func (rs *BoltStore) Close() error {
	return rs.db.Close()
}
