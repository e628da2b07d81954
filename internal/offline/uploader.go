package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"campaid/internal/metrics"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/sirupsen/logrus"
)

// DraftQueue is the part of the local draft store the uploader mutates.
type DraftQueue interface {
	DraftLister
	Delete(ctx context.Context, id uint64) error
	UpdateStatus(ctx context.Context, id uint64, status types.DraftStatus, msg string) error
}

// Registry is the remote family register.
type Registry interface {
	NIDLookup
	store.BundleWriter
	ActiveFamilyByNumber(ctx context.Context, campID, familyNumber string) (*types.Family, error)
}

type Uploader struct {
	drafts  DraftQueue
	remote  Registry
	checker *Checker
	conn    Connectivity
	logger  *logrus.Logger

	// one batch at a time so uniqueness checks see every earlier write
	mu sync.Mutex
}

func NewUploader(drafts DraftQueue, remote Registry, conn Connectivity, logger *logrus.Logger) *Uploader {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Uploader{
		drafts:  drafts,
		remote:  remote,
		checker: NewChecker(drafts, remote, conn),
		conn:    conn,
		logger:  logger,
	}
}

// UploadAll pushes the camp's queued drafts to the remote store in storage
// order. Uploaded drafts are deleted; rejected ones stay queued with status
// error. Drafts already in error are retried.
func (u *Uploader) UploadAll(ctx context.Context, campID string) (*types.UploadResult, error) {
	if !u.conn.Online() {
		return nil, &types.ConnectivityError{Op: "upload drafts"}
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	queued, err := u.drafts.List(ctx, campID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts for camp %s: %w", campID, err)
	}

	result := &types.UploadResult{CampID: campID, Outcomes: make([]types.DraftOutcome, 0, len(queued))}

	for _, draft := range queued {
		outcome := types.DraftOutcome{DraftID: draft.ID, FamilyNumber: draftFamilyNumber(draft)}
		entry := u.logger.WithFields(logrus.Fields{
			"draft_id":      draft.ID,
			"camp_id":       draft.CampID,
			"family_number": outcome.FamilyNumber,
		})

		uploadErr := u.upload(ctx, draft)
		if uploadErr != nil {
			outcome.Error = uploadErr.Error()
			result.FailCount++
			metrics.DraftUploads.WithLabelValues("failed").Inc()
			entry.WithError(uploadErr).Warn("draft upload failed")

			if err := u.drafts.UpdateStatus(ctx, draft.ID, types.DraftStatusError, uploadErr.Error()); err != nil {
				entry.WithError(err).Error("failed to record draft upload error")
			}
		} else {
			outcome.FamilyID = draft.Bundle.Family.ID
			result.SuccessCount++
			metrics.DraftUploads.WithLabelValues("uploaded").Inc()
			entry.WithField("family_id", outcome.FamilyID).Info("draft uploaded")

			if err := u.drafts.Delete(ctx, draft.ID); err != nil && !errors.Is(err, types.ErrDraftNotFound) {
				entry.WithError(err).Error("failed to delete uploaded draft")
			}
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func (u *Uploader) upload(ctx context.Context, draft *types.Draft) error {
	if draft.Bundle == nil || draft.Bundle.Family == nil {
		return errors.New("draft has no family record")
	}
	bundle := draft.Bundle

	_, err := u.remote.ActiveFamilyByNumber(ctx, bundle.Family.CampID, bundle.Family.FamilyNumber)
	switch {
	case err == nil:
		return &types.DuplicateError{
			Kind:   types.DuplicateFamilyNumber,
			Value:  bundle.Family.FamilyNumber,
			Source: types.SourceRemote,
		}
	case !errors.Is(err, types.ErrFamilyNotFound):
		return &types.RemoteOperationError{Op: "check family number", Err: err}
	}

	for _, nid := range bundle.NIDs() {
		holder, err := u.checker.Remote(ctx, nid)
		if err != nil {
			return err
		}
		if holder != nil {
			return &types.DuplicateError{
				Kind:               types.DuplicateNID,
				Value:              nid,
				Source:             types.SourceRemote,
				HolderFamilyNumber: holder.FamilyNumber,
			}
		}
	}

	if err := store.CreateBundle(ctx, u.remote, bundle); err != nil {
		return &types.RemoteOperationError{Op: "create family", Err: err}
	}

	return nil
}

// CampLister reports which camps have queued drafts.
type CampLister interface {
	Camps(ctx context.Context) ([]string, error)
}

// AutoUpload returns a connectivity listener that uploads every camp's queued
// drafts when the remote store comes back. It runs on the monitor's
// goroutine, so the next probe waits for the batch.
func (u *Uploader) AutoUpload(ctx context.Context, camps CampLister) func(online bool) {
	return func(online bool) {
		if !online {
			return
		}

		ids, err := camps.Camps(ctx)
		if err != nil {
			u.logger.WithError(err).Error("failed to list camps with queued drafts")
			return
		}

		for _, campID := range ids {
			result, err := u.UploadAll(ctx, campID)
			if err != nil {
				u.logger.WithError(err).WithField("camp_id", campID).Warn("automatic draft upload stopped")
				return
			}
			u.logger.WithFields(logrus.Fields{
				"camp_id":  campID,
				"uploaded": result.SuccessCount,
				"failed":   result.FailCount,
			}).Info("automatic draft upload finished")
		}
	}
}
