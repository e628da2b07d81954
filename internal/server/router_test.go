package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campaid/internal/drafts"
	"campaid/internal/offline"
	"campaid/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upPinger struct{}

func (upPinger) Ping(ctx context.Context) error { return nil }

type fakeRegistry struct {
	families map[string]*types.Family
	members  map[string][]*types.Individual
	departed map[string]bool
}

func (f *fakeRegistry) Family(ctx context.Context, familyID string) (*types.Family, error) {
	fam, ok := f.families[familyID]
	if !ok {
		return nil, types.ErrFamilyNotFound
	}
	copied := *fam
	return &copied, nil
}

func (f *fakeRegistry) FamiliesByCamp(ctx context.Context, campID string, includeDeparted bool) ([]*types.Family, error) {
	var out []*types.Family
	for _, fam := range f.families {
		if fam.CampID == campID && (includeDeparted || !fam.IsDeparted) {
			out = append(out, fam)
		}
	}
	return out, nil
}

func (f *fakeRegistry) ActiveFamilyByNumber(ctx context.Context, campID, familyNumber string) (*types.Family, error) {
	for _, fam := range f.families {
		if fam.CampID == campID && fam.FamilyNumber == familyNumber && !fam.IsDeparted {
			return fam, nil
		}
	}
	return nil, types.ErrFamilyNotFound
}

func (f *fakeRegistry) IndividualsByFamily(ctx context.Context, familyID string) ([]*types.Individual, error) {
	return f.members[familyID], nil
}

func (f *fakeRegistry) SetDeparted(ctx context.Context, familyID string, departed bool) error {
	f.departed[familyID] = departed
	f.families[familyID].IsDeparted = departed
	return nil
}

type routerFixture struct {
	handler  http.Handler
	drafts   *drafts.Store
	registry *fakeRegistry
	key      jwk.Key
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctx := context.Background()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256()))

	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(jwks.Close)

	cacheCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	cache, err := jwk.NewCache(cacheCtx, httprc.NewClient())
	require.NoError(t, err)
	require.NoError(t, cache.Register(ctx, jwks.URL))

	store, err := drafts.Open(drafts.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	monitor := offline.NewMonitor(upPinger{}, offline.MonitorConfig{}, logger)
	require.True(t, monitor.Check(ctx))

	registry := &fakeRegistry{
		families: map[string]*types.Family{
			"fam-old":  {ID: "fam-old", CampID: "camp-1", FamilyNumber: "101", Address: "Sector A", IsDeparted: true},
			"fam-new":  {ID: "fam-new", CampID: "camp-1", FamilyNumber: "101", Address: "Sector D"},
			"fam-gone": {ID: "fam-gone", CampID: "camp-1", FamilyNumber: "102", Address: "Sector B", IsDeparted: true},
		},
		members: map[string][]*types.Individual{
			"fam-new": {{ID: "ind-1", FamilyID: "fam-new", Name: "Yousef Ali", Role: types.RoleHusband}},
		},
		departed: map[string]bool{},
	}

	s := &Service{
		logger:    logger,
		config:    &types.Config{CookieName: "campaid_session", SessionMaxAgeSec: 3600},
		repos:     &Repositories{Registry: registry},
		offline:   &Offline{Drafts: store, Monitor: monitor},
		cookie:    securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)),
		jwksCache: cache,
		jwksURL:   jwks.URL,
	}

	mux := flow.New()
	s.buildRouter(mux)

	return &routerFixture{handler: mux, drafts: store, registry: registry, key: key}
}

func (f *routerFixture) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject("user-1").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), f.key))
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+string(signed))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterRejectsMissingToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/drafts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/drafts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterDeleteDraft(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	draft, err := f.drafts.Save(ctx, &types.FamilyForm{
		CampID:       "camp-1",
		FamilyNumber: "7",
		Address:      "Sector B",
		ShelterType:  "manufactured_tent",
		Members: []types.MemberForm{
			{Name: "Yousef Ali", NID: "111111111", DateOfBirth: "1975-01-20", Role: "husband"},
		},
	}, time.Now())
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, fmt.Sprintf("/drafts/%d", draft.ID), "", "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	_, err = f.drafts.Draft(ctx, draft.ID)
	assert.ErrorIs(t, err, types.ErrDraftNotFound)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/drafts/%d", draft.ID), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/drafts/abc", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterGetFamily(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/families/fam-new", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var bundle types.FamilyBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "fam-new", bundle.Family.ID)
	require.Len(t, bundle.Members, 1)
	assert.Equal(t, "Yousef Ali", bundle.Members[0].Name)

	rec = f.do(t, http.MethodGet, "/families/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterDepart(t *testing.T) {
	f := newRouterFixture(t)

	// number 101 is held by fam-new, so fam-old stays departed
	rec := f.do(t, http.MethodPost, "/families/fam-old/depart", "application/json", `{"departed":false}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, types.SourceRemote, body.Source)
	assert.NotContains(t, f.registry.departed, "fam-old")

	rec = f.do(t, http.MethodPost, "/families/fam-gone/depart", "application/json", `{"departed":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, f.registry.departed["fam-gone"])

	rec = f.do(t, http.MethodPost, "/families/fam-new/depart", "application/x-www-form-urlencoded", "departed=true")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.registry.departed["fam-new"])

	rec = f.do(t, http.MethodPost, "/families/missing/depart", "application/json", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
