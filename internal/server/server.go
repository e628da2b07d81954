package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"campaid/internal/backup"
	"campaid/internal/drafts"
	"campaid/internal/importer"
	"campaid/internal/offline"
	"campaid/internal/reports"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// FamilyRegistry is the part of the remote register the family handlers use.
// *store.Registry satisfies it.
type FamilyRegistry interface {
	Family(ctx context.Context, familyID string) (*types.Family, error)
	FamiliesByCamp(ctx context.Context, campID string, includeDeparted bool) ([]*types.Family, error)
	ActiveFamilyByNumber(ctx context.Context, campID, familyNumber string) (*types.Family, error)
	IndividualsByFamily(ctx context.Context, familyID string) ([]*types.Individual, error)
	SetDeparted(ctx context.Context, familyID string, departed bool) error
}

var _ FamilyRegistry = (*store.Registry)(nil)

// Repositories are the remote tables the handlers read and write directly.
type Repositories struct {
	Registry      FamilyRegistry
	Camps         *store.CampRepository
	Delegates     *store.DelegateRepository
	Parcels       *store.ParcelRepository
	Deliveries    *store.DeliveryRepository
	Notifications *store.NotificationRepository
}

// Offline is the device-local side: the draft queue and the services that
// move families between it and the remote store.
type Offline struct {
	Drafts   *drafts.Store
	Monitor  *offline.Monitor
	Policy   *offline.Policy
	Uploader *offline.Uploader
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	repos    *Repositories
	offline  *Offline
	importer *importer.Reconciler
	reports  *reports.Builder
	backups  *backup.Service

	cognitoClient *cognitoidentityprovider.Client
	cookie        *securecookie.SecureCookie

	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	cognitoClient *cognitoidentityprovider.Client,
	repos *Repositories,
	off *Offline,
	reconciler *importer.Reconciler,
	builder *reports.Builder,
	backups *backup.Service,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	cookie := securecookie.New(hashKey, blockKey)
	cookie.MaxAge(config.SessionMaxAgeSec)

	s := &Service{
		logger:        logger,
		config:        config,
		repos:         repos,
		offline:       off,
		importer:      reconciler,
		reports:       builder,
		backups:       backups,
		cognitoClient: cognitoClient,
		cookie:        cookie,
		jwksCache:     jwkCache,
		jwksURL:       jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)
		r.Use(s.InitAppContext)

		r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)
		r.HandleFunc("/camp", s.handlePostCamp, http.MethodPost)

		r.HandleFunc("/families", s.handleGetFamilies, http.MethodGet)
		r.HandleFunc("/families", s.handlePostFamily, http.MethodPost)
		r.HandleFunc("/families/next-number", s.handleGetNextFamilyNumber, http.MethodGet)
		r.HandleFunc("/families/:familyID", s.handleGetFamily, http.MethodGet)
		r.HandleFunc("/families/:familyID/depart", s.handlePostDepart, http.MethodPost)

		r.HandleFunc("/nid/check", s.handleGetNIDCheck, http.MethodGet)

		r.HandleFunc("/drafts", s.handleGetDrafts, http.MethodGet)
		r.HandleFunc("/drafts/upload", s.handlePostDraftUpload, http.MethodPost)
		r.HandleFunc("/drafts/:draftID", s.handleDeleteDraft, http.MethodDelete)

		r.HandleFunc("/import", s.handlePostImport, http.MethodPost)
		r.HandleFunc("/reports", s.handlePostReport, http.MethodPost)

		r.HandleFunc("/delegates", s.handleGetDelegates, http.MethodGet)
		r.HandleFunc("/parcels", s.handleGetParcels, http.MethodGet)
		r.HandleFunc("/parcels", s.handlePostParcel, http.MethodPost)
		r.HandleFunc("/parcels/:parcelID/deliveries", s.handleGetDeliveries, http.MethodGet)
		r.HandleFunc("/parcels/:parcelID/deliveries", s.handlePostDelivery, http.MethodPost)

		r.HandleFunc("/notifications", s.handleGetNotifications, http.MethodGet)
		r.HandleFunc("/notifications/read", s.handlePostNotificationsRead, http.MethodPost)

		r.HandleFunc("/backup", s.handleGetBackup, http.MethodGet)
		r.HandleFunc("/restore", s.handlePostRestore, http.MethodPost)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	pending, err := s.offline.Drafts.Count(ctx, "")
	if err != nil {
		s.logger.WithError(err).Error("failed to count drafts for health check")
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"online":        s.offline.Monitor.Online(),
		"pendingDrafts": pending,
	})
}
