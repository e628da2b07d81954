// Package backup exports the core tables to a single JSON document and
// restores them from one.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"campaid/internal/storage"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	AppName = "campaid"
	Version = "1.0"
)

var ErrNoObjectStore = errors.New("no backup object store configured")

type Repository interface {
	Dump(ctx context.Context, tableName string) ([]map[string]any, error)
	Replace(ctx context.Context, data map[string][]map[string]any) error
}

type Service struct {
	repo    Repository
	objects storage.ObjectStore
	logger  *logrus.Logger
	now     func() time.Time
}

// NewService returns a backup Service. objects may be nil when archives are
// only downloaded over HTTP.
func NewService(repo Repository, objects storage.ObjectStore, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Service{
		repo:    repo,
		objects: objects,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) Export(ctx context.Context) (*types.Backup, error) {
	b := &types.Backup{
		Metadata: types.BackupMetadata{
			Version:   Version,
			CreatedAt: s.now().UTC(),
			App:       AppName,
		},
		Data: make(map[string][]map[string]any, len(store.BackupTables)),
	}

	for _, t := range store.BackupTables {
		rows, err := s.repo.Dump(ctx, t)
		if err != nil {
			return nil, &types.RemoteOperationError{Op: "export " + t, Err: err}
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		b.Data[t] = rows
	}

	return b, nil
}

// Restore replaces every backed up table with the content of b. Nothing is
// written unless the metadata and table list check out.
func (s *Service) Restore(ctx context.Context, b *types.Backup) error {
	if err := Validate(b); err != nil {
		return err
	}

	if err := s.repo.Replace(ctx, b.Data); err != nil {
		return &types.RemoteOperationError{Op: "restore backup", Err: err}
	}

	entry := s.logger.WithField("created_at", b.Metadata.CreatedAt)
	for _, t := range store.BackupTables {
		entry = entry.WithField(t, len(b.Data[t]))
	}
	entry.Info("backup restored")

	return nil
}

// Validate checks that b was produced by a compatible export.
func Validate(b *types.Backup) error {
	if b == nil {
		return types.NewValidationError("", "backup document is empty")
	}
	if b.Metadata.App != AppName {
		return types.NewValidationError("metadata.app", "backup was not produced by %s", AppName)
	}
	if b.Metadata.Version != Version {
		return types.NewValidationError("metadata.version", "unsupported backup version %q", b.Metadata.Version)
	}
	if b.Metadata.CreatedAt.IsZero() {
		return types.NewValidationError("metadata.created_at", "backup has no creation time")
	}
	if b.Data == nil {
		return types.NewValidationError("data", "backup has no data section")
	}
	for t := range b.Data {
		if !slices.Contains(store.BackupTables, t) {
			return types.NewValidationError("data."+t, "unknown table %s", t)
		}
	}
	// Restore empties every table, so a partial document would lose the rest.
	for _, t := range store.BackupTables {
		if _, ok := b.Data[t]; !ok {
			return types.NewValidationError("data."+t, "backup is missing table %s", t)
		}
	}
	return nil
}

func Encode(w io.Writer, b *types.Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

func Decode(r io.Reader) (*types.Backup, error) {
	var b types.Backup
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&b); err != nil {
		return nil, types.NewValidationError("", "backup file is not valid JSON: %s", err)
	}
	return &b, nil
}

// Filename names an export taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("%s-backup-%s.json", AppName, t.UTC().Format("20060102T150405Z"))
}

// Archive exports the database and stores the document in the object store,
// returning its key.
func (s *Service) Archive(ctx context.Context) (string, error) {
	if s.objects == nil {
		return "", ErrNoObjectStore
	}

	b, err := s.Export(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return "", err
	}

	key, err := s.objects.Put(ctx, Filename(b.Metadata.CreatedAt), buf.Bytes(), "application/json")
	if err != nil {
		return "", &types.RemoteOperationError{Op: "archive backup", Err: err}
	}

	s.logger.WithField("key", key).WithField("bytes", buf.Len()).Info("backup archived")
	return key, nil
}

// RestoreArchive restores the document stored under key.
func (s *Service) RestoreArchive(ctx context.Context, key string) error {
	if s.objects == nil {
		return ErrNoObjectStore
	}

	body, err := s.objects.Get(ctx, key)
	if err != nil {
		return &types.RemoteOperationError{Op: "fetch backup " + key, Err: err}
	}

	b, err := Decode(bytes.NewReader(body))
	if err != nil {
		return err
	}

	return s.Restore(ctx, b)
}
