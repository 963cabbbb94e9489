// Package submbolt stores submissions in an embedded bbolt file, one JSON
// value per submission id.
package submbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ieltsdesk/backend/subm"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("submissions")

type BoltSubmRepo struct {
	db *bolt.DB
}

var _ subm.Repo = (*BoltSubmRepo)(nil)

func Open(path string) (*BoltSubmRepo, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltSubmRepo{db: db}, nil
}

func (r *BoltSubmRepo) Close() error {
	return r.db.Close()
}

func (r *BoltSubmRepo) Create(ctx context.Context, s subm.Submission) error {
	value, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(s.ID)) != nil {
			return subm.ErrAlreadyExists
		}
		return b.Put([]byte(s.ID), value)
	})
}

func (r *BoltSubmRepo) Get(ctx context.Context, id string) (subm.Submission, error) {
	var s subm.Submission
	err := r.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketName).Get([]byte(id))
		if value == nil {
			return subm.ErrNotFound
		}
		return json.Unmarshal(value, &s)
	})
	return s, err
}

func (r *BoltSubmRepo) List(ctx context.Context, f subm.Filter) ([]subm.Submission, error) {
	var all []subm.Submission
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			var s subm.Submission
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("failed to unmarshal submission %s: %w", k, err)
			}
			all = append(all, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

func (r *BoltSubmRepo) SetChecked(ctx context.Context, id string, checked bool) (subm.Submission, error) {
	var s subm.Submission
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		value := b.Get([]byte(id))
		if value == nil {
			return subm.ErrNotFound
		}
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("failed to unmarshal submission: %w", err)
		}
		s.Checked = checked
		updated, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal submission: %w", err)
		}
		return b.Put([]byte(id), updated)
	})
	return s, err
}

func (r *BoltSubmRepo) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(id)) == nil {
			return subm.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}
