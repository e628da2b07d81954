package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"campaid/internal/backup"
	"campaid/internal/reports"
	"campaid/pkg/types"
)

// handlePostReport builds a custom report. ?format=csv returns a download
// instead of JSON.
func (s *Service) handlePostReport(w http.ResponseWriter, r *http.Request) {
	var req types.ReportRequest
	if err := s.decodeInput(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.CampID == "" {
		req.CampID = appContextFrom(r.Context()).CampID
	}

	if err := s.requireOnline("build report"); err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.reports.Build(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		s.writeJSON(w, http.StatusOK, report)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteCSV(&buf, report); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// handleGetBackup downloads a full export. With ?archive=true the export is
// stored in the configured object store instead.
func (s *Service) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.requireOnline("export backup"); err != nil {
		s.writeError(w, r, err)
		return
	}

	if queryBool(r, "archive", false) {
		key, err := s.backups.Archive(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]string{"key": key})
		return
	}

	b, err := s.backups.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := backup.Encode(&buf, b); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, backup.Filename(b.Metadata.CreatedAt)))
	_, _ = w.Write(buf.Bytes())
}

const maxRestoreBytes = 256 << 20

// handlePostRestore replaces the whole database with an uploaded export, or
// with an archived one named by key. confirm=yes is required.
func (s *Service) handlePostRestore(w http.ResponseWriter, r *http.Request) {
	if strings.ToLower(r.URL.Query().Get("confirm")) != "yes" {
		s.writeError(w, r, types.NewValidationError("confirm", "restoring replaces all data, pass confirm=yes"))
		return
	}
	if err := s.requireOnline("restore backup"); err != nil {
		s.writeError(w, r, err)
		return
	}

	if key := r.URL.Query().Get("key"); key != "" {
		if err := s.backups.RestoreArchive(r.Context(), key); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, types.NewValidationError("file", "a backup file is required"))
			return
		}
		defer file.Close()
		body = file
	}

	b, err := backup.Decode(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.backups.Restore(r.Context(), b); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
