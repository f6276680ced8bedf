// Package jsonstore implements repository.Repository on top of flat JSON
// files (users.json, admins.json, blocked.json, devices.json).
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/model"
	"github.com/m3rciful/lumiabot/internal/repository"
)

const (
	usersFile   = "users.json"
	adminsFile  = "admins.json"
	blockedFile = "blocked.json"
	devicesFile = "devices.json"
)

var _ repository.Repository = (*Store)(nil)

// Store keeps every record kind in its own file under dir. Files are re-read
// on each call so out-of-band catalog edits are picked up without restart.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open prepares the data directory.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("jsonstore: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Catalog returns the device catalog.
func (s *Store) Catalog(ctx context.Context) (model.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []deviceRecord
	if err := s.load(ctx, devicesFile, &recs); err != nil {
		return nil, err
	}
	catalog := make(model.Catalog, 0, len(recs))
	for _, r := range recs {
		catalog = append(catalog, r.toModel())
	}
	return catalog, nil
}

// Users lists every known user.
func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []userRecord
	if err := s.load(ctx, usersFile, &recs); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

// User fetches one user record.
func (s *Store) User(ctx context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []userRecord
	if err := s.load(ctx, usersFile, &recs); err != nil {
		return model.User{}, err
	}
	for _, r := range recs {
		if r.UserID == id {
			return r.toModel(), nil
		}
	}
	return model.User{}, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
}

// UpsertUser replaces the record with the same id or appends a new one.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []userRecord
	if err := s.load(ctx, usersFile, &recs); err != nil {
		return err
	}
	rec := fromUser(u)
	replaced := false
	for i := range recs {
		if recs[i].UserID == u.ID {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return s.save(usersFile, recs)
}

// Admins lists stored admins.
func (s *Store) Admins(ctx context.Context) ([]model.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []adminRecord
	if err := s.load(ctx, adminsFile, &recs); err != nil {
		return nil, err
	}
	out := make([]model.Admin, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Admin{ID: r.UserID, FullName: r.Fullname, Username: r.Username})
	}
	return out, nil
}

// AddAdmin stores a new admin.
func (s *Store) AddAdmin(ctx context.Context, a model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []adminRecord
	if err := s.load(ctx, adminsFile, &recs); err != nil {
		return err
	}
	for _, r := range recs {
		if r.UserID == a.ID {
			return errs.ErrAlreadyAdmin
		}
	}
	recs = append(recs, adminRecord{UserID: a.ID, Fullname: a.FullName, Username: a.Username})
	return s.save(adminsFile, recs)
}

// RemoveAdmin deletes an admin record.
func (s *Store) RemoveAdmin(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []adminRecord
	if err := s.load(ctx, adminsFile, &recs); err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.UserID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(recs) {
		return errs.ErrNotAdmin
	}
	return s.save(adminsFile, kept)
}

// Blocked lists blocked users.
func (s *Store) Blocked(ctx context.Context) ([]model.Blocked, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []blockedRecord
	if err := s.load(ctx, blockedFile, &recs); err != nil {
		return nil, err
	}
	out := make([]model.Blocked, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Blocked{ID: r.UserID, FullName: r.Fullname, Username: r.Username, Reason: r.Reason})
	}
	return out, nil
}

// AddBlocked stores a blocked user.
func (s *Store) AddBlocked(ctx context.Context, b model.Blocked) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []blockedRecord
	if err := s.load(ctx, blockedFile, &recs); err != nil {
		return err
	}
	for _, r := range recs {
		if r.UserID == b.ID {
			return errs.ErrAlreadyBlocked
		}
	}
	recs = append(recs, blockedRecord{UserID: b.ID, Fullname: b.FullName, Username: b.Username, Reason: b.Reason})
	return s.save(blockedFile, recs)
}

// RemoveBlocked deletes a blocked user record.
func (s *Store) RemoveBlocked(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []blockedRecord
	if err := s.load(ctx, blockedFile, &recs); err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.UserID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(recs) {
		return errs.ErrNotBlocked
	}
	return s.save(blockedFile, kept)
}

// load decodes name into dst. A missing file reads as empty; a malformed one
// is logged and reset to an empty list.
func (s *Store) load(ctx context.Context, name string, dst any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("jsonstore: read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := unmarshal(data, dst); err != nil {
		v := reflect.ValueOf(dst).Elem()
		v.Set(reflect.Zero(v.Type()))
		logger.Warn(ctx, "store", "store.reset",
			slog.String("file", name),
			slog.String("err", err.Error()),
		)
		return s.save(name, []struct{}{})
	}
	return nil
}

func unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

// save writes v through a temp file and rename so readers never see a partial file.
func (s *Store) save(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("jsonstore: marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonstore: create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonstore: chmod %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonstore: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonstore: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonstore: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("jsonstore: rename %s: %w", name, err)
	}
	return nil
}
