package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ieltsdesk/backend/auth"
	"github.com/ieltsdesk/backend/conf"
	"github.com/ieltsdesk/backend/filestore"
	"github.com/ieltsdesk/backend/grammar"
	apihttp "github.com/ieltsdesk/backend/http"
	"github.com/ieltsdesk/backend/logger"
	"github.com/ieltsdesk/backend/s3bucket"
	"github.com/ieltsdesk/backend/subm"
	"github.com/ieltsdesk/backend/subm/submbolt"
	"github.com/ieltsdesk/backend/subm/submddb"
	"github.com/ieltsdesk/backend/subm/submsrvc"
	"goa.design/clue/log"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	rootLogger := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(rootLogger)
	ctx = logger.WithLogger(ctx, rootLogger)

	// AWS SDK clients log through clue
	clueFormat := log.FormatText
	if cfg.Log.Format == "json" {
		clueFormat = log.FormatJSON
	}
	ctx = log.Context(ctx, log.WithFormat(clueFormat))

	if err := cfg.ResolveSecrets(ctx); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, closeRepo, err := openRepo(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeRepo()

	files, err := openFiles(ctx, cfg.Files)
	if err != nil {
		return err
	}

	ltClient := grammar.NewLanguageToolClient(cfg.Grammar.Endpoint, cfg.Grammar.Language,
		&http.Client{Timeout: cfg.Grammar.TimeoutDuration()})
	checker := grammar.NewChecker(ltClient, cfg.Grammar.CacheTTLDuration(),
		cfg.Grammar.TimeoutDuration(), rootLogger.With("component", "grammar"))

	teacherAuth, err := auth.NewTeacherAuth(
		cfg.Teacher.Username,
		cfg.Teacher.Password,
		cfg.Teacher.PasswordBcrypt,
		[]byte(cfg.Jwt.Key),
		cfg.Jwt.TTL(),
		auth.NewCacheSessionStore(10*time.Minute),
	)
	if err != nil {
		return err
	}

	submSrvc := submsrvc.NewSubmSrvc(repo, files, checker)

	httpServer := apihttp.NewHttpServer(apihttp.Options{
		Env:            cfg.Server.Env,
		Version:        cfg.Server.Version,
		LogLevel:       logger.ParseLevel(cfg.Log.Level),
		CorsOrigins:    cfg.Server.CorsOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, submSrvc, teacherAuth, checker)

	rootLogger.Info("starting server",
		"address", cfg.Server.Addr,
		"store", cfg.Store.Backend,
		"files", cfg.Files.Backend)

	if err := httpServer.Start(ctx, cfg.Server.Addr); err != nil {
		return err
	}
	rootLogger.Info("server stopped")
	return nil
}

func openRepo(ctx context.Context, c conf.StoreConf) (subm.Repo, func(), error) {
	switch c.Backend {
	case conf.StoreBackendDynamo:
		repo, err := submddb.NewFromRegion(ctx, c.Region, c.DynamoTable)
		if err != nil {
			return nil, nil, fmt.Errorf("opening dynamodb store: %w", err)
		}
		return repo, func() {}, nil
	default:
		repo, err := submbolt.Open(c.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening bolt store: %w", err)
		}
		closeFn := func() {
			if err := repo.Close(); err != nil {
				slog.Error("failed to close bolt store", "error", err)
			}
		}
		return repo, closeFn, nil
	}
}

func openFiles(ctx context.Context, c conf.FilesConf) (filestore.Store, error) {
	switch c.Backend {
	case conf.FilesBackendS3:
		bucket, err := s3bucket.NewS3Bucket(ctx, c.Region, c.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("opening s3 bucket: %w", err)
		}
		return bucket, nil
	default:
		local, err := filestore.NewLocalStore(c.UploadsDir)
		if err != nil {
			return nil, fmt.Errorf("opening uploads dir: %w", err)
		}
		return local, nil
	}
}
