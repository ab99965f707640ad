package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/handler"
	"github.com/marcelofv/oauth2-core/internal/handler/middleware"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/internal/repository/postgres"
	"github.com/marcelofv/oauth2-core/internal/repository/redisstore"
	"github.com/marcelofv/oauth2-core/internal/service"
	pkgjwt "github.com/marcelofv/oauth2-core/pkg/jwt"
	"github.com/marcelofv/oauth2-core/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	// Initialize Redis client
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	// Load the server signing key
	signer, err := loadSigner(cfg)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}
	log.Println("✓ Signing key loaded")

	// Initialize repositories
	clientRepo := postgres.NewClientRepository(db)
	userRepo := postgres.NewUserRepository(db)
	accessTokenRepo := postgres.NewAccessTokenRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	authCodeRepo := postgres.NewAuthorizationCodeRepository(db)
	revocationStore := redisstore.NewRevocationStore(redisClient, cfg.Token.RefreshTokenLifetime)

	// Initialize token services
	accessTokens := service.NewAccessTokenService(accessTokenRepo, revocationStore, cfg.Token)
	refreshTokens := service.NewRefreshTokenService(refreshTokenRepo, revocationStore, cfg.Token)
	authCodes := service.NewAuthorizationCodeService(authCodeRepo, cfg.Token)
	idTokens := service.NewIDTokenService(signer, cfg.Keys.Issuer, cfg.Token)

	// Initialize the engine services
	scopes := service.NewScopeService(service.ClientScopePolicy{})
	authenticator := service.NewClientAuthenticator(clientRepo,
		service.BasicExtractor{},
		service.BodyExtractor{},
		service.AssertionExtractor{},
	)

	grants := service.NewGrantService(authenticator, clientRepo, scopes, accessTokens, refreshTokens, idTokens, cfg.Policy)
	grants.Register(service.NewAuthorizationCodeGrant(authCodes))
	grants.Register(service.NewClientCredentialsGrant(cfg.Policy))
	grants.Register(service.NewPasswordGrant(userRepo, cfg.Policy))
	grants.Register(service.NewRefreshTokenGrant(refreshTokens))
	grants.Register(service.NewJWTBearerGrant())

	authorize := service.NewAuthorizeService(clientRepo, scopes, service.NewResponseModeEncoder(), cfg.Policy)
	authorize.Register(service.NewCodeResponseType(authCodes, true))
	authorize.Register(service.NewTokenResponseType(accessTokens, cfg.Policy.AllowConfidentialImplicit))
	authorize.Register(service.NewIDTokenResponseType(idTokens))
	authorize.Register(service.NewNoneResponseType(accessTokens))

	introspection := service.NewIntrospectionService(authenticator, cfg.Keys.Issuer)
	introspection.Register(service.NewAccessTokenKind(accessTokens))
	introspection.Register(service.NewRefreshTokenKind(refreshTokens))

	// Initialize handlers
	tokenHandler := handler.NewTokenHandler(grants)
	authorizeHandler := handler.NewAuthorizeHandler(authorize, userRepo)
	introspectionHandler := handler.NewIntrospectionHandler(introspection)
	clientHandler := handler.NewClientHandler(clientRepo, validator.NewValidator())
	jwksHandler := handler.NewJWKSHandler(signer.PublicKey(), cfg.Keys.KeyID, signer.Alg())
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "OAuth2 Core v1.0",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware())

	handler.SetupRoutes(app, tokenHandler, authorizeHandler, introspectionHandler, clientHandler, jwksHandler, healthHandler)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Periodically drop expired tokens and codes from the store
	go runCleanup(ctx, accessTokenRepo, refreshTokenRepo, authCodeRepo)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			log.Printf("❌ Server failed to start: %v", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("Error closing Redis after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// loadSigner reads the PEM private key and builds the JWT signer
func loadSigner(cfg *config.Config) (*pkgjwt.Signer, error) {
	pem, err := os.ReadFile(cfg.Keys.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	if len(pem) == 0 {
		return nil, fmt.Errorf("private key file is empty")
	}

	return pkgjwt.NewSigner(pem, cfg.Keys.KeyID, cfg.Keys.Algorithm)
}

type expiredDeleter interface {
	DeleteExpired(ctx context.Context) error
}

// runCleanup drops expired rows hourly until the context is canceled
func runCleanup(ctx context.Context, accessTokens repository.AccessTokenRepository, refreshTokens repository.RefreshTokenRepository, authCodes repository.AuthorizationCodeRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	stores := []expiredDeleter{accessTokens, refreshTokens, authCodes}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, store := range stores {
				if err := store.DeleteExpired(ctx); err != nil {
					log.Printf("Failed to delete expired tokens: %v", err)
				}
			}
		}
	}
}
