package offline

import (
	"context"
	"errors"
	"fmt"

	"campaid/internal/family"
	"campaid/pkg/types"
)

// DraftLister is the read side of the local draft store.
type DraftLister interface {
	List(ctx context.Context, campID string) ([]*types.Draft, error)
}

// NIDLookup finds the active holder of a national id in the remote store and
// returns types.ErrIndividualNotFound when nobody holds it.
type NIDLookup interface {
	ActiveNIDHolder(ctx context.Context, nid string) (*types.NIDHolder, error)
}

type Connectivity interface {
	Online() bool
}

// Scope is the in-progress context a national id is checked against.
type Scope struct {
	// FormNIDs are the national ids of the members currently on the form.
	FormNIDs []string
	// EditingIndex is the member being edited, skipped in FormNIDs. -1 for none.
	EditingIndex int
	// EditingDraftID is the draft being edited, skipped among queued drafts. 0 for none.
	EditingDraftID uint64
}

func NewScope(formNIDs []string) Scope {
	return Scope{FormNIDs: formNIDs, EditingIndex: -1}
}

type Checker struct {
	drafts DraftLister
	remote NIDLookup
	conn   Connectivity
}

func NewChecker(drafts DraftLister, remote NIDLookup, conn Connectivity) *Checker {
	return &Checker{drafts: drafts, remote: remote, conn: conn}
}

// IsDuplicate reports whether nid is already used in the form, a queued draft
// or, when online, an active remote family.
func (c *Checker) IsDuplicate(ctx context.Context, nid string, scope Scope) (bool, error) {
	dup, err := c.Find(ctx, nid, scope)
	if err != nil {
		return false, err
	}
	return dup != nil, nil
}

// Find runs the checks in order form, drafts, remote and returns the first hit
// as a *types.DuplicateError, or nil when nid is free. The remote check is
// skipped while offline.
func (c *Checker) Find(ctx context.Context, nid string, scope Scope) (*types.DuplicateError, error) {
	nid = family.NormalizeNID(nid)
	if nid == "" {
		return nil, nil
	}

	for i, other := range scope.FormNIDs {
		if i == scope.EditingIndex {
			continue
		}
		if family.NormalizeNID(other) == nid {
			return &types.DuplicateError{Kind: types.DuplicateNID, Value: nid, Source: types.SourceForm}, nil
		}
	}

	drafts, err := c.drafts.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	for _, d := range drafts {
		if d.ID == scope.EditingDraftID || d.Bundle == nil {
			continue
		}
		for _, queued := range d.Bundle.NIDs() {
			if queued == nid {
				return &types.DuplicateError{
					Kind:               types.DuplicateNID,
					Value:              nid,
					Source:             types.SourceDraft,
					HolderFamilyNumber: draftFamilyNumber(d),
				}, nil
			}
		}
	}

	if c.conn == nil || !c.conn.Online() {
		return nil, nil
	}

	holder, err := c.Remote(ctx, nid)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		return &types.DuplicateError{
			Kind:               types.DuplicateNID,
			Value:              nid,
			Source:             types.SourceRemote,
			HolderFamilyNumber: holder.FamilyNumber,
		}, nil
	}

	return nil, nil
}

// Remote looks nid up among the individuals of active remote families only.
// It returns nil, nil when the id is free.
func (c *Checker) Remote(ctx context.Context, nid string) (*types.NIDHolder, error) {
	holder, err := c.remote.ActiveNIDHolder(ctx, family.NormalizeNID(nid))
	if err != nil {
		if errors.Is(err, types.ErrIndividualNotFound) {
			return nil, nil
		}
		return nil, &types.RemoteOperationError{Op: "check national id", Err: err}
	}
	return holder, nil
}

func draftFamilyNumber(d *types.Draft) string {
	if d.Bundle == nil || d.Bundle.Family == nil {
		return ""
	}
	return d.Bundle.Family.FamilyNumber
}
