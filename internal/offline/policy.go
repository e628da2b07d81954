package offline

import (
	"context"
	"errors"
	"io"
	"time"

	"campaid/internal/family"
	"campaid/internal/metrics"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/sirupsen/logrus"
)

// DraftSaver is the local draft store as seen by the save policy.
type DraftSaver interface {
	DraftLister
	Save(ctx context.Context, form *types.FamilyForm, now time.Time) (*types.Draft, error)
	BumpFamilyNumber(ctx context.Context, campID, familyNumber string) error
}

// Prober is a Connectivity that can also re-probe on demand.
type Prober interface {
	Connectivity
	Check(ctx context.Context) bool
}

// Policy decides where a newly registered family goes: straight to the
// remote store while it is reachable, into the local draft queue otherwise.
type Policy struct {
	drafts  DraftSaver
	remote  Registry
	checker *Checker
	prober  Prober
	logger  *logrus.Logger
	now     func() time.Time
}

func NewPolicy(drafts DraftSaver, remote Registry, prober Prober, logger *logrus.Logger) *Policy {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Policy{
		drafts:  drafts,
		remote:  remote,
		checker: NewChecker(drafts, remote, prober),
		prober:  prober,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *Policy) Checker() *Checker {
	return p.checker
}

// SaveFamily validates form, runs the national id checks and stores the
// family remotely or as a draft.
func (p *Policy) SaveFamily(ctx context.Context, form *types.FamilyForm) (*types.SaveOutcome, error) {
	now := p.now()

	bundle, err := family.Assemble(form, now)
	if err != nil {
		return nil, err
	}
	if bundle.Family.CampID == "" {
		return nil, types.NewValidationError("camp_id", "a camp must be selected")
	}

	online := p.prober.Online()

	// Assemble already rejected repeats inside the form.
	for _, nid := range bundle.NIDs() {
		dup, err := p.checker.Find(ctx, nid, NewScope(nil))
		if err != nil {
			var remoteErr *types.RemoteOperationError
			if errors.As(err, &remoteErr) && !p.prober.Check(ctx) {
				online = false
				dup, err = p.checker.Find(ctx, nid, NewScope(nil))
			}
			if err != nil {
				return nil, err
			}
		}
		if dup != nil {
			return nil, dup
		}
	}

	if online {
		outcome, err := p.saveRemote(ctx, bundle)
		if err == nil {
			return outcome, nil
		}

		var dup *types.DuplicateError
		if errors.As(err, &dup) || bundle.Family.ID != "" || p.prober.Check(ctx) {
			return nil, err
		}

		p.logger.WithError(err).WithField("family_number", bundle.Family.FamilyNumber).
			Warn("remote store unreachable, saving family as draft")
	}

	draft, err := p.drafts.Save(ctx, form, now)
	if err != nil {
		return nil, err
	}
	metrics.DraftsSaved.Inc()

	return &types.SaveOutcome{Destination: types.SavedDraft, Draft: draft}, nil
}

func (p *Policy) saveRemote(ctx context.Context, bundle *types.FamilyBundle) (*types.SaveOutcome, error) {
	f := bundle.Family

	_, err := p.remote.ActiveFamilyByNumber(ctx, f.CampID, f.FamilyNumber)
	switch {
	case err == nil:
		return nil, &types.DuplicateError{Kind: types.DuplicateFamilyNumber, Value: f.FamilyNumber, Source: types.SourceRemote}
	case !errors.Is(err, types.ErrFamilyNotFound):
		return nil, &types.RemoteOperationError{Op: "check family number", Err: err}
	}

	if err := store.CreateBundle(ctx, p.remote, bundle); err != nil {
		return nil, &types.RemoteOperationError{Op: "create family", Err: err}
	}

	if err := p.drafts.BumpFamilyNumber(ctx, f.CampID, f.FamilyNumber); err != nil {
		p.logger.WithError(err).WithField("camp_id", f.CampID).Warn("failed to update next family number")
	}

	p.logger.WithFields(logrus.Fields{
		"family_id":     f.ID,
		"family_number": f.FamilyNumber,
		"camp_id":       f.CampID,
		"members":       len(bundle.Members),
	}).Info("family registered")

	return &types.SaveOutcome{Destination: types.SavedRemote, Family: f}, nil
}
