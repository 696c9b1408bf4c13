package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glassworks/authcore/internal/accounts"
	"github.com/glassworks/authcore/internal/audit"
	"github.com/glassworks/authcore/internal/common"
	"github.com/glassworks/authcore/internal/config"
	"github.com/glassworks/authcore/internal/core"
	"github.com/glassworks/authcore/internal/lockout"
	"github.com/glassworks/authcore/internal/password"
	"github.com/glassworks/authcore/internal/sessions"
	"github.com/glassworks/authcore/internal/store"
	"github.com/glassworks/authcore/model"
	"github.com/glassworks/authcore/params"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "authcored - authentication and session core for the glassworks ERP"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	return db
}

func mustInitRedis(redisCfg config.RedisConfig) redis.UniversalClient {
	opts, err := redis.ParseURL(redisCfg.URL)
	if err != nil {
		slog.Error("Invalid redis url", "error", err)
		os.Exit(1)
	}
	if redisCfg.PoolSize > 0 {
		opts.PoolSize = redisCfg.PoolSize
	}
	return redis.NewClient(opts)
}

// seedAdminAccount provisions an initial ADMIN credential with a one-time
// password when the store has no admin yet.
func seedAdminAccount(ctx context.Context, credStore accounts.CredentialStore) error {
	if _, err := credStore.FindByUsername(ctx, "admin"); err == nil {
		return nil
	} else if !errors.Is(err, accounts.ErrNotFound) {
		return err
	}

	secret, err := common.GenerateSecret(16)
	if err != nil {
		return err
	}
	digest, err := password.NewHasher().Hash(secret)
	if err != nil {
		return err
	}
	admin := &model.Credential{
		Username:     "admin",
		PasswordHash: digest,
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
	}
	if err := credStore.Persist(ctx, admin); err != nil {
		return err
	}
	slog.Warn("Provisioned initial admin account, change the password on first login", "username", "admin", "password", secret)
	return nil
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(cfg.Debug || ctx.IsSet(debugFlag.Name))

	db := mustInitDatabase(cfg.MySQL)

	var rdb redis.UniversalClient
	var cacheStorage store.Storage
	if cfg.Cache.Backend == "redis" {
		rdb = mustInitRedis(cfg.Redis)
		cacheStorage = store.NewRedisStorage(rdb)
	} else {
		cacheStorage = store.NewMemoryStorage()
	}

	credStore := accounts.NewGormCredentialStore(db)
	var auditRepo audit.EventRepository
	if cfg.Audit.Durable {
		auditRepo = audit.NewEventRepository(db)
	}

	authCore, err := core.New(core.Options{
		Store:        credStore,
		AuditRepo:    auditRepo,
		AuditMax:     cfg.Audit.MaxEvents,
		CacheStorage: cacheStorage,
		CacheTTL:     cfg.Cache.TTL,
		LockoutPolicy: lockout.Policy{
			MaxAttempts: cfg.Auth.MaxAttempts,
			Duration:    cfg.Auth.LockoutDuration,
		},
		Session: sessions.Config{
			IdleTimeout:   cfg.Session.IdleTimeout,
			MaxPerUser:    cfg.Session.MaxPerUser,
			StrictBinding: cfg.Session.StrictBinding,
			SweepInterval: cfg.Session.SweepInterval,
		},
	})
	if err != nil {
		return err
	}

	seedCtx, cancel := context.WithTimeout(ctx.Context, params.CredentialStoreTimeout)
	defer cancel()
	if err := seedAdminAccount(seedCtx, credStore); err != nil {
		slog.Error("Failed to seed admin account", "error", err)
		return err
	}

	authCore.Start()
	defer authCore.Stop()

	runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthCheckCtx, term := context.WithCancel(runCtx)
	done := make(chan struct{})
	go common.StartHealthCheckServer(healthCheckCtx, done, cfg.HealthCheckAddr, rdb, db)
	defer func() {
		term()
		<-done
	}()

	slog.Info("authcore is running", "version", params.Version, "cache", cfg.Cache.Backend)
	<-runCtx.Done()
	slog.Info("Shutting down", "uptime", time.Since(startTime).Round(time.Second))
	return nil
}

var startTime = time.Now()

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
