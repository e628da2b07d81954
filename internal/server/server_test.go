package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"campaid/internal/backup"
	"campaid/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &Service{
		logger: logger,
		config: &types.Config{CookieName: "campaid_session", SessionMaxAgeSec: 3600},
		cookie: securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)),
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", types.NewValidationError("nid", "bad"), http.StatusUnprocessableEntity},
		{"duplicate", &types.DuplicateError{Kind: types.DuplicateNID, Value: "123456789"}, http.StatusConflict},
		{"wrapped duplicate", fmt.Errorf("save: %w", &types.DuplicateError{Kind: types.DuplicateFamilyNumber}), http.StatusConflict},
		{"unresolved delegates", &types.UnresolvedDelegatesError{}, http.StatusUnprocessableEntity},
		{"offline", &types.ConnectivityError{Op: "upload drafts"}, http.StatusServiceUnavailable},
		{"remote failure", remote("list families", errors.New("conn reset")), http.StatusBadGateway},
		{"remote not found", remote("get family", types.ErrFamilyNotFound), http.StatusNotFound},
		{"draft not found", types.ErrDraftNotFound, http.StatusNotFound},
		{"no object store", backup.ErrNoObjectStore, http.StatusNotImplemented},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := statusFor(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, body := statusFor(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", body.Error)

	_, body = statusFor(&types.DuplicateError{Kind: types.DuplicateNID, Value: "123456789", Source: types.SourceDraft, HolderFamilyNumber: "7"})
	assert.Equal(t, types.SourceDraft, body.Source)
	assert.Equal(t, "national id 123456789 is already registered in the queued draft for family 7", body.Error)
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), contextKeyUserID, userID))
}

func TestAppContextCookie(t *testing.T) {
	s := newTestService()

	rec := httptest.NewRecorder()
	require.NoError(t, s.saveAppContext(rec, &AppContext{UserID: "user-1", CampID: "camp-1"}))
	saved := rec.Result().Cookies()
	require.Len(t, saved, 1)

	var seen *AppContext
	handler := s.InitAppContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = appContextFrom(r.Context())
	}))

	t.Run("same user", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/families", nil), "user-1")
		req.AddCookie(saved[0])

		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "camp-1", seen.CampID)
		assert.Equal(t, "user-1", seen.UserID)
	})

	t.Run("other user", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/families", nil), "user-2")
		req.AddCookie(saved[0])

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "", seen.CampID)
		assert.Equal(t, "user-2", seen.UserID)

		cleared := rec.Result().Cookies()
		require.Len(t, cleared, 1)
		assert.Equal(t, -1, cleared[0].MaxAge)
	})

	t.Run("tampered cookie", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/families", nil), "user-1")
		req.AddCookie(&http.Cookie{Name: "campaid_session", Value: "garbage"})

		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "", seen.CampID)
	})
}

func TestCampIDRequired(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/families", nil)
	_, err := campID(req)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "camp_id", verr.Field)
}

func TestDecodeInput(t *testing.T) {
	s := newTestService()

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/families", strings.NewReader(
			`{"familyNumber":"101","members":[{"name":"Yousef","nid":"123456789"}]}`))
		req.Header.Set("Content-Type", "application/json")

		var form types.FamilyForm
		require.NoError(t, s.decodeInput(req, &form))
		assert.Equal(t, "101", form.FamilyNumber)
		require.Len(t, form.Members, 1)
		assert.Equal(t, "123456789", form.Members[0].NID)
	})

	t.Run("form", func(t *testing.T) {
		values := url.Values{
			"family_number":            {"102"},
			"members[0].name":          {"Mariam"},
			"members[0].is_pregnant":   {"true"},
			"members[1].name":          {"Sami"},
			"members[1].date_of_birth": {"2023-10-19"},
		}
		req := httptest.NewRequest(http.MethodPost, "/families", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var form types.FamilyForm
		require.NoError(t, s.decodeInput(req, &form))
		assert.Equal(t, "102", form.FamilyNumber)
		require.Len(t, form.Members, 2)
		assert.True(t, form.Members[0].IsPregnant)
		assert.Equal(t, "2023-10-19", form.Members[1].DateOfBirth)
	})

	t.Run("bad json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/families", strings.NewReader(`{"familyNumber":`))
		req.Header.Set("Content-Type", "application/json")

		var form types.FamilyForm
		var verr *types.ValidationError
		assert.ErrorAs(t, s.decodeInput(req, &form), &verr)
	})
}

func TestNIDCheckRejectsMalformed(t *testing.T) {
	s := newTestService()

	rec := httptest.NewRecorder()
	s.handleGetNIDCheck(rec, httptest.NewRequest(http.MethodGet, "/nid/check?nid=12-34", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"nid"`)
}

func TestRestoreRequiresConfirm(t *testing.T) {
	s := newTestService()

	rec := httptest.NewRecorder()
	s.handlePostRestore(rec, httptest.NewRequest(http.MethodPost, "/restore", strings.NewReader("{}")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"confirm"`)
}

func TestStripTrailingSlash(t *testing.T) {
	s := newTestService()
	handler := s.StripTrailingSlash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/families/?include_departed=true", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/families?include_departed=true", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/families", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
