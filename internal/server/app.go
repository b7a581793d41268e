// Package server wires the auth server together: configuration, logging,
// the Postgres user store, the Redis session and token cache, the mail
// sender, the auth service and the gRPC transport.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/chirper/internal/logging"
	"github.com/dmitrijs2005/chirper/internal/server/auth"
	"github.com/dmitrijs2005/chirper/internal/server/cache"
	"github.com/dmitrijs2005/chirper/internal/server/config"
	"github.com/dmitrijs2005/chirper/internal/server/mail"
	"github.com/dmitrijs2005/chirper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/chirper/internal/server/services"
	"github.com/dmitrijs2005/chirper/internal/server/sessions"
	"github.com/dmitrijs2005/chirper/internal/server/verification"

	gs "github.com/dmitrijs2005/chirper/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	cache       *cache.Client
	authService *services.AuthService
}

// NewApp connects to Postgres and Redis, applies migrations and builds the
// auth service. The caller owns the returned App and must Run it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	cc, err := cache.New(cache.Options{URL: c.RedisURL, Prefix: c.RedisPrefix, DefaultTTL: c.CacheTTL}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}
	if err := cc.Ping(ctx); err != nil {
		_ = cc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	as := newAuthService(c, db, rm, cc, logger)

	return &App{config: c, logger: logger, db: db, cache: cc, authService: as}, nil
}

func newAuthService(c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, cc *cache.Client, logger logging.Logger) *services.AuthService {
	tokens := auth.NewTokenIssuer(auth.IssuerConfig{
		AccessSecret:       []byte(c.AccessTokenSecret),
		AccessTTL:          c.AccessTokenValidityDuration,
		RefreshSecret:      []byte(c.RefreshTokenSecret),
		RefreshTTL:         c.RefreshTokenValidityDuration,
		IgnoreAccessExpiry: c.IgnoreAccessTokenExpiry,
	})

	deps := services.Deps{
		Hasher:      auth.NewPasswordHasher(c.PasswordHashCost),
		Tokens:      tokens,
		Sessions:    sessions.NewCache(cc, c.CacheTTL),
		EmailTokens: verification.NewStore(cc, verification.EmailVerify, c.CacheTTL),
		ResetTokens: verification.NewStore(cc, verification.PasswordReset, c.PasswordResetTokenTTL),
		Mailer:      newMailer(c, logger),
	}

	opts := services.Options{
		VerifyTokenLength:     c.VerifyTokenLength,
		PasswordResetTokenTTL: c.PasswordResetTokenTTL,
	}

	return services.NewAuthService(db, rm, deps, opts, logger)
}

// newMailer sends through SMTP when a host is configured and logs otherwise.
func newMailer(c *config.Config, logger logging.Logger) mail.Sender {
	links := mail.Links{EmailVerifyURL: c.EmailVerifyURL, PasswordResetURL: c.PasswordResetURL}

	if c.SMTPHost == "" {
		logger.Warn(context.Background(), "SMTP host not set, mails will be logged only")
		return mail.NewLogSender(links, logger)
	}

	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		Links:    links,
	}, logger)
}

// newGRPCServer builds the transport. Only the health service is served, so
// there are no protected methods yet.
func newGRPCServer(c *config.Config, logger logging.Logger, a gs.Authenticator) *gs.Server {
	return gs.NewServer(c.EndpointAddrGRPC, logger, a)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := newGRPCServer(app.config, app.logger, app.authService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the database and cache connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if err := app.cache.Close(); err != nil {
		app.logger.Error(ctx, "cache close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
