package main

import (
	"context"
	"time"

	"github.com/cppla/chatdesk/config"
	"github.com/cppla/chatdesk/models"
	"github.com/cppla/chatdesk/providers"
	"github.com/cppla/chatdesk/routes"
	"github.com/cppla/chatdesk/services"
	"github.com/cppla/chatdesk/store"
	"github.com/cppla/chatdesk/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.UploadedFile{})

	var hooks []func()

	sessions, memSessions := newSessionStore(cfg)
	if memSessions == nil {
		rc := utils.GetRedis()
		hooks = append(hooks, func() { _ = rc.Close() })
	}

	blobs, mediaDir := newBlobStore(cfg)

	provider, err := providers.New(providers.Config{
		Name:    cfg.ProviderName,
		APIKey:  cfg.ProviderAPIKey(),
		Model:   cfg.ProviderModel,
		BaseURL: cfg.ProviderBaseURL,
	})
	if err != nil {
		utils.Sugar.Fatalf("completion provider: %v", err)
	}
	if provider == nil {
		utils.Sugar.Warnf("no API key for provider %q; chat replies will be mock responses", cfg.ProviderName)
	}

	chat := services.NewChatService(sessions, provider, cfg.ProviderTimeout, utils.Logger.Named("chat"))
	files := services.NewFileService(db, blobs, sessions, utils.Logger.Named("files"))

	// Periodic housekeeping: expired uploads and idle in-memory sessions
	var jobs []utils.CleanupJob
	if cfg.FileRetention > 0 {
		retention := time.Duration(cfg.FileRetention) * time.Hour
		jobs = append(jobs, utils.CleanupJob{
			Name: "expired-files",
			Run: func(ctx context.Context) (int, error) {
				return files.PurgeOlderThan(ctx, time.Now().Add(-retention), 100)
			},
		})
	}
	if memSessions != nil {
		jobs = append(jobs, utils.CleanupJob{
			Name: "idle-sessions",
			Run:  func(context.Context) (int, error) { return memSessions.Sweep(), nil },
		})
	}
	if len(jobs) > 0 {
		cleaner, err := utils.StartCleaner(cfg.CleanerInterval, time.Minute, jobs...)
		if err != nil {
			utils.Sugar.Fatalf("cleaner schedule %q: %v", cfg.CleanerInterval, err)
		}
		hooks = append(hooks, func() { <-cleaner.Stop().Done() })
	}

	r := routes.SetupRouter(cfg, routes.Dependencies{Chat: chat, Files: files, MediaDir: mediaDir})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, hooks...); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// newSessionStore prefers Redis and falls back to process memory when Redis
// is not configured or unreachable. The memory store is also returned so the
// cleaner can sweep it.
func newSessionStore(cfg config.AppConfig) (store.SessionStore, *store.MemorySessionStore) {
	if cfg.SessionBackend == "redis" {
		if rc := utils.GetRedis(); rc != nil {
			return store.NewRedisSessionStore(rc, cfg.SessionTTL), nil
		}
		utils.Sugar.Warn("redis unreachable; keeping sessions in process memory")
	}
	mem := store.NewMemorySessionStore(cfg.SessionTTL)
	return mem, mem
}

func newBlobStore(cfg config.AppConfig) (store.BlobStore, string) {
	switch cfg.StorageDriver {
	case "minio":
		bs, err := store.NewMinioBlobStore(store.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			utils.Sugar.Fatalf("blob storage: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bs.Init(ctx); err != nil {
			utils.Sugar.Fatalf("blob storage: %v", err)
		}
		return bs, ""
	default:
		bs, err := store.NewLocalBlobStore(cfg.StorageDir, cfg.MediaURLPrefix)
		if err != nil {
			utils.Sugar.Fatalf("blob storage: %v", err)
		}
		return bs, bs.Root()
	}
}
