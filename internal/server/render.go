package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"campaid/internal/backup"
	"campaid/pkg/types"
)

type errorBody struct {
	Error      string                     `json:"error"`
	Field      string                     `json:"field,omitempty"`
	Kind       types.DuplicateKind        `json:"kind,omitempty"`
	Source     types.DuplicateSource      `json:"source,omitempty"`
	Unresolved []types.UnresolvedDelegate `json:"unresolved,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// statusFor maps domain errors onto HTTP statuses and the body the client
// sees. Anything unrecognised is a 500 with a generic message.
func statusFor(err error) (int, errorBody) {
	var (
		verr   *types.ValidationError
		dup    *types.DuplicateError
		unres  *types.UnresolvedDelegatesError
		remote *types.RemoteOperationError
	)

	switch {
	case errors.Is(err, types.ErrFamilyNotFound),
		errors.Is(err, types.ErrIndividualNotFound),
		errors.Is(err, types.ErrDraftNotFound),
		errors.Is(err, types.ErrCampNotFound),
		errors.Is(err, types.ErrParcelNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error()}
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Error: verr.Message, Field: verr.Field}
	case errors.As(err, &dup):
		return http.StatusConflict, errorBody{Error: dup.Error(), Kind: dup.Kind, Source: dup.Source}
	case errors.As(err, &unres):
		return http.StatusUnprocessableEntity, errorBody{Error: unres.Error(), Unresolved: unres.Delegates}
	case errors.Is(err, types.ErrNoConnectivity):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error()}
	case errors.Is(err, backup.ErrNoObjectStore):
		return http.StatusNotImplemented, errorBody{Error: err.Error()}
	case errors.As(err, &remote):
		return http.StatusBadGateway, errorBody{Error: remote.Op + " failed, try again later"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)

	entry := s.logger.WithError(err).WithField("path", r.URL.Path).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	s.writeJSON(w, status, body)
}

// remote wraps a failed remote store call. Not-found sentinels and domain
// errors keep their mapping through the wrapper.
func remote(op string, err error) error {
	return &types.RemoteOperationError{Op: op, Err: err}
}

// requireOnline fails fast with a ConnectivityError when the remote store is
// known to be unreachable.
func (s *Service) requireOnline(op string) error {
	if !s.offline.Monitor.Online() {
		return &types.ConnectivityError{Op: op}
	}
	return nil
}
