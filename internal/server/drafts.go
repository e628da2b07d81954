package server

import (
	"errors"
	"net/http"
	"strconv"

	"campaid/internal/family"
	"campaid/internal/importer"
	"campaid/internal/offline"
	"campaid/pkg/types"
)

type nidCheckResponse struct {
	NID                string                `json:"nid"`
	Duplicate          bool                  `json:"duplicate"`
	Source             types.DuplicateSource `json:"source,omitempty"`
	HolderFamilyNumber string                `json:"holderFamilyNumber,omitempty"`
	Message            string                `json:"message,omitempty"`
}

// handleGetNIDCheck is the live check the registration form runs while a
// national id is typed. form_nid repeats for every nid already on the form.
func (s *Service) handleGetNIDCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	nid := family.NormalizeNID(q.Get("nid"))
	if !family.ValidNID(nid) {
		s.writeError(w, r, types.NewValidationError("nid", "national id must be exactly %d digits", family.NIDLength))
		return
	}

	scope := offline.NewScope(q["form_nid"])
	if raw := q.Get("editing_index"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, types.NewValidationError("editing_index", "must be a number"))
			return
		}
		scope.EditingIndex = idx
	}
	if raw := q.Get("draft_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, types.NewValidationError("draft_id", "must be a number"))
			return
		}
		scope.EditingDraftID = id
	}

	dup, err := s.offline.Policy.Checker().Find(r.Context(), nid, scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := nidCheckResponse{NID: nid}
	if dup != nil {
		resp.Duplicate = true
		resp.Source = dup.Source
		resp.HolderFamilyNumber = dup.HolderFamilyNumber
		resp.Message = dup.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetDrafts lists every queued draft with the session's camp first.
func (s *Service) handleGetDrafts(w http.ResponseWriter, r *http.Request) {
	camp := appContextFrom(r.Context()).CampID

	drafts, err := s.offline.Drafts.ListPrioritized(r.Context(), camp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, drafts)
}

func (s *Service) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("draftID"), 10, 64)
	if err != nil {
		s.writeError(w, r, types.ErrDraftNotFound)
		return
	}

	if err := s.offline.Drafts.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("draft_id", id).Info("draft discarded")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handlePostDraftUpload(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.offline.Uploader.UploadAll(r.Context(), camp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

const maxImportBytes = 10 << 20

// handlePostImport runs a bulk import from a multipart "file" upload.
func (s *Service) handlePostImport(w http.ResponseWriter, r *http.Request) {
	camp, err := campID(r)
	if err == nil {
		err = s.requireOnline("bulk import")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, types.NewValidationError("file", "an .xlsx or .csv file is required"))
		return
	}
	defer file.Close()

	rows, err := importer.ReadRows(header.Filename, file)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			err = types.NewValidationError("file", "%s", err)
		} else {
			err = types.NewValidationError("file", "could not read %s: %s", header.Filename, err)
		}
		s.writeError(w, r, err)
		return
	}

	report, err := s.importer.Import(r.Context(), camp, rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}
