package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaid/internal/backup"
	"campaid/internal/db"
	"campaid/internal/importer"
	"campaid/internal/offline"
	"campaid/internal/reports"
	"campaid/internal/server"
	"campaid/internal/storage"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server and the connectivity monitor",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(config)

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)

	// The pool is opened without a ping: the server must start while the
	// remote store is unreachable and the monitor takes it from there.
	pool, err := db.Open(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	draftStore, err := openDrafts(config, logger)
	if err != nil {
		return err
	}
	defer draftStore.Close()

	registry := store.NewRegistry(pool)
	delegateRepo := store.NewDelegateRepository(pool)
	notificationRepo := store.NewNotificationRepository(pool)

	monitor := newMonitor(config, registry, logger)
	policy := offline.NewPolicy(draftStore, registry, monitor, logger)
	uploader := offline.NewUploader(draftStore, registry, monitor, logger)
	if config.AutoUploadDrafts {
		monitor.OnChange(uploader.AutoUpload(ctx, draftStore))
	}

	reconciler := importer.NewReconciler(registry, delegateRepo, importer.Config{
		Threshold: config.DelegateMatchThreshold,
		Notifier:  notificationRepo,
		Logger:    logger,
	})

	var bridge reports.Bridge
	if config.OpenAIAPIKey != "" {
		bridge = reports.NewOpenAIBridge(config.OpenAIAPIKey, config.OpenAIModel, logger)
	} else {
		logger.Info("OPENAI_API_KEY not set, report columns use the keyword heuristic")
	}
	builder := reports.NewBuilder(bridge, registry, logger)

	backups := backup.NewService(store.NewBackupRepository(pool), backupObjectStore(config, awsConfig, logger), logger)

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		cognitoClient,
		&server.Repositories{
			Registry:      registry,
			Camps:         store.NewCampRepository(pool),
			Delegates:     delegateRepo,
			Parcels:       store.NewParcelRepository(pool),
			Deliveries:    store.NewDeliveryRepository(pool),
			Notifications: notificationRepo,
		},
		&server.Offline{
			Drafts:   draftStore,
			Monitor:  monitor,
			Policy:   policy,
			Uploader: uploader,
		},
		reconciler,
		builder,
		backups,
		jwkCache,
		jwksURL,
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return monitor.Run(gctx)
	})

	g.Go(func() error {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Stop(shutdownCtx)
	})

	return g.Wait()
}

// backupObjectStore picks S3 when a bucket is configured, then Supabase
// Storage, else nil and archives are disabled.
func backupObjectStore(config *types.Config, awsConfig aws.Config, logger *logrus.Logger) storage.ObjectStore {
	switch {
	case config.BackupBucket != "":
		return storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.BackupBucket)
	case config.SupabaseProjectID != "" && config.SupabaseAPIKey != "":
		return storage.NewSupabaseStorage(config.SupabaseProjectID, config.SupabaseAPIKey, config.SupabaseBackupBucket)
	default:
		logger.Debug("no backup object store configured")
		return nil
	}
}
