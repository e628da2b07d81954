// Package drafts is the device-local queue of family bundles captured while
// the remote store is unreachable. It is backed by an embedded badger
// database so queued drafts survive restarts.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"campaid/internal/family"
	"campaid/pkg/types"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

const (
	draftPrefix   = "draft/"
	nextPrefix    = "next/"
	sequenceKey   = "seq/draft"
	sequenceLease = 64
)

type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *logrus.Logger
}

type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *logrus.Logger
}

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("draft store path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("failed to create draft store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger.WithField("component", "badger"))
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft store: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceLease)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to lease draft id sequence: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Store{db: db, seq: seq, logger: logger}, nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.WithError(err).Warn("failed to release draft id sequence")
	}
	return s.db.Close()
}

// Save validates form and appends it as a pending draft. Invalid forms are
// rejected and nothing is stored.
func (s *Store) Save(ctx context.Context, form *types.FamilyForm, now time.Time) (*types.Draft, error) {
	bundle, err := family.Assemble(form, now)
	if err != nil {
		return nil, err
	}

	if bundle.Family.CampID == "" {
		return nil, types.NewValidationError("camp_id", "a camp must be selected before saving a draft")
	}

	next, err := s.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate draft id: %w", err)
	}

	draft := &types.Draft{
		ID:        next + 1,
		CampID:    bundle.Family.CampID,
		Bundle:    bundle,
		Status:    types.DraftStatusPending,
		CreatedAt: now,
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := putDraft(txn, draft); err != nil {
			return err
		}
		return bumpFamilyNumber(txn, draft.CampID, bundle.Family.FamilyNumber)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"draft_id":      draft.ID,
		"camp_id":       draft.CampID,
		"family_number": bundle.Family.FamilyNumber,
	}).Info("draft saved")

	return draft, nil
}

func (s *Store) Draft(ctx context.Context, id uint64) (*types.Draft, error) {
	var draft *types.Draft
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		draft, err = getDraft(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Delete removes a draft, either on operator request or after a successful upload.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(draftKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return types.ErrDraftNotFound
			}
			return fmt.Errorf("failed to read draft %d: %w", id, err)
		}
		return txn.Delete(draftKey(id))
	})
}

// UpdateStatus records an upload outcome on a draft. Failed drafts stay in
// the store so an operator can fix and retry them.
func (s *Store) UpdateStatus(ctx context.Context, id uint64, status types.DraftStatus, msg string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		draft, err := getDraft(txn, id)
		if err != nil {
			return err
		}
		draft.Status = status
		draft.Error = msg
		return putDraft(txn, draft)
	})
}

// List returns drafts in storage order, oldest first. An empty campID lists
// every camp.
func (s *Store) List(ctx context.Context, campID string) ([]*types.Draft, error) {
	out := make([]*types.Draft, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(draftPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var draft types.Draft
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &draft)
			})
			if err != nil {
				return fmt.Errorf("failed to decode draft %s: %w", it.Item().Key(), err)
			}

			if campID != "" && draft.CampID != campID {
				continue
			}
			out = append(out, &draft)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPrioritized returns every draft with the given camp's drafts first and
// the other camps' drafts after them, each group in storage order.
func (s *Store) ListPrioritized(ctx context.Context, campID string) ([]*types.Draft, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	current := make([]*types.Draft, 0, len(all))
	others := make([]*types.Draft, 0)
	for _, d := range all {
		if d.CampID == campID {
			current = append(current, d)
		} else {
			others = append(others, d)
		}
	}
	return append(current, others...), nil
}

func (s *Store) Count(ctx context.Context, campID string) (int, error) {
	drafts, err := s.List(ctx, campID)
	if err != nil {
		return 0, err
	}
	return len(drafts), nil
}

// Camps returns the distinct camps that have queued drafts, in order of
// their oldest draft.
func (s *Store) Camps(ctx context.Context) ([]string, error) {
	drafts, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, d := range drafts {
		if seen[d.CampID] {
			continue
		}
		seen[d.CampID] = true
		out = append(out, d.CampID)
	}
	return out, nil
}

// NextFamilyNumber returns the cached suggestion for the camp's next family
// number, or "" when nothing numeric has been recorded yet.
func (s *Store) NextFamilyNumber(ctx context.Context, campID string) (string, error) {
	var next string
	err := s.db.View(func(txn *badger.Txn) error {
		n, err := readNext(txn, campID)
		if err != nil {
			return err
		}
		if n > 0 {
			next = strconv.FormatInt(n, 10)
		}
		return nil
	})
	return next, err
}

// BumpFamilyNumber raises the camp's suggestion past familyNumber when it is numeric.
func (s *Store) BumpFamilyNumber(ctx context.Context, campID, familyNumber string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return bumpFamilyNumber(txn, campID, familyNumber)
	})
}

func draftKey(id uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", draftPrefix, id)
}

func getDraft(txn *badger.Txn, id uint64) (*types.Draft, error) {
	item, err := txn.Get(draftKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to read draft %d: %w", id, err)
	}

	draft := new(types.Draft)
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, draft)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode draft %d: %w", id, err)
	}
	return draft, nil
}

func putDraft(txn *badger.Txn, draft *types.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft %d: %w", draft.ID, err)
	}
	return txn.Set(draftKey(draft.ID), data)
}

func readNext(txn *badger.Txn, campID string) (int64, error) {
	item, err := txn.Get([]byte(nextPrefix + campID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read next family number for camp %s: %w", campID, err)
	}

	var n int64
	err = item.Value(func(val []byte) error {
		n, err = strconv.ParseInt(string(val), 10, 64)
		return err
	})
	return n, err
}

func bumpFamilyNumber(txn *badger.Txn, campID, familyNumber string) error {
	n, err := strconv.ParseInt(familyNumber, 10, 64)
	if err != nil {
		return nil
	}

	current, err := readNext(txn, campID)
	if err != nil {
		return err
	}
	if n+1 <= current {
		return nil
	}
	return txn.Set([]byte(nextPrefix+campID), []byte(strconv.FormatInt(n+1, 10)))
}
