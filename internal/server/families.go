package server

import (
	"errors"
	"net/http"

	"campaid/pkg/types"
)

func (s *Service) handleGetFamilies(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err == nil {
		err = s.requireOnline("list families")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	families, err := s.repos.Registry.FamiliesByCamp(r.Context(), camp, queryBool(r, "include_departed", false))
	if err != nil {
		s.writeError(w, r, remote("list families", err))
		return
	}

	s.writeJSON(w, http.StatusOK, families)
}

// handlePostFamily registers a family. It lands in the remote store when
// reachable and in the local draft queue otherwise.
func (s *Service) handlePostFamily(w http.ResponseWriter, r *http.Request) {
	var form types.FamilyForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}

	if form.CampID == "" {
		form.CampID = appContextFrom(r.Context()).CampID
	}

	outcome, err := s.offline.Policy.SaveFamily(r.Context(), &form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if outcome.Destination == types.SavedDraft {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, outcome)
}

func (s *Service) handleGetNextFamilyNumber(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	next, err := s.offline.Drafts.NextFamilyNumber(r.Context(), camp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"familyNumber": next})
}

func (s *Service) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("familyID")

	if err := s.requireOnline("get family"); err != nil {
		s.writeError(w, r, err)
		return
	}

	family, err := s.repos.Registry.Family(r.Context(), familyID)
	if err != nil {
		s.writeError(w, r, remote("get family", err))
		return
	}

	members, err := s.repos.Registry.IndividualsByFamily(r.Context(), familyID)
	if err != nil {
		s.writeError(w, r, remote("get family members", err))
		return
	}

	s.writeJSON(w, http.StatusOK, &types.FamilyBundle{Family: family, Members: members})
}

type departForm struct {
	Departed *bool `form:"departed" json:"departed"`
}

// handlePostDepart marks a family departed, or active again with
// departed=false. Reactivation is refused while another active family of the
// camp holds the same number.
func (s *Service) handlePostDepart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID := r.PathValue("familyID")

	var in departForm
	if err := s.decodeInput(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	departed := in.Departed == nil || *in.Departed

	if err := s.requireOnline("update family"); err != nil {
		s.writeError(w, r, err)
		return
	}

	family, err := s.repos.Registry.Family(ctx, familyID)
	if err != nil {
		s.writeError(w, r, remote("get family", err))
		return
	}

	if !departed && family.IsDeparted {
		holder, err := s.repos.Registry.ActiveFamilyByNumber(ctx, family.CampID, family.FamilyNumber)
		switch {
		case err == nil && holder.ID != family.ID:
			s.writeError(w, r, &types.DuplicateError{
				Kind:               types.DuplicateFamilyNumber,
				Value:              family.FamilyNumber,
				Source:             types.SourceRemote,
				HolderFamilyNumber: holder.FamilyNumber,
			})
			return
		case err != nil && !errors.Is(err, types.ErrFamilyNotFound):
			s.writeError(w, r, remote("check family number", err))
			return
		}
	}

	if err := s.repos.Registry.SetDeparted(ctx, familyID, departed); err != nil {
		s.writeError(w, r, remote("update family", err))
		return
	}
	family.IsDeparted = departed

	s.logger.WithField("family_id", familyID).WithField("departed", departed).Info("family departure updated")

	s.writeJSON(w, http.StatusOK, family)
}
