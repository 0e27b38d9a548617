package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	appControllers "github.com/flexlog/flexchat/internal/app/controllers"
	appMigrations "github.com/flexlog/flexchat/internal/app/migrations"
	appRepos "github.com/flexlog/flexchat/internal/app/repositories"
	appRoutes "github.com/flexlog/flexchat/internal/app/routes"
	appServices "github.com/flexlog/flexchat/internal/app/services"
	"github.com/flexlog/flexchat/internal/config"
	"github.com/flexlog/flexchat/internal/db"
	appMiddleware "github.com/flexlog/flexchat/internal/middleware"
	pkgAuth "github.com/flexlog/flexchat/internal/pkg/auth"
	"github.com/flexlog/flexchat/internal/pkg/changefeed"
	"github.com/flexlog/flexchat/internal/pkg/logger"
	"github.com/flexlog/flexchat/internal/pkg/realtime"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	MessageService         appServices.MessageService
	TypingService          appServices.TypingService
	PresenceService        appServices.PresenceService
	ReactionService        appServices.ReactionService
	ConversationService    appServices.ConversationService
	MessageController      *appControllers.MessageController
	TypingController       *appControllers.TypingController
	PresenceController     *appControllers.PresenceController
	ReactionController     *appControllers.ReactionController
	ConversationController *appControllers.ConversationController
	WSHandler              *realtime.Handler
	AuthMiddleware         *appMiddleware.AuthMiddleware
	Repos                  *appRepos.Repositories
	JWTService             *pkgAuth.JWTService
	Feed                   *changefeed.Broker
	Hub                    *realtime.Hub
	Logger                 zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, lgr)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return dbPool, nil
}

// BuildDependencies initializes repositories, the change feed, services and
// controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenIssuer: cfg.JWT.Issuer,
	})

	deps.Feed = changefeed.NewBroker(lgr)

	deps.MessageService = appServices.NewMessageService(
		deps.Repos.MessageRepository,
		deps.Repos.ParticipantRepository,
		deps.Feed,
		lgr,
		cfg.DeliveryRetention(),
	)
	deps.TypingService = appServices.NewTypingService(
		deps.Repos.TypingRepository,
		deps.Feed,
		lgr,
		cfg.TypingDebounce(),
		cfg.TypingExpiry(),
		cfg.TypingNameRotation(),
	)
	deps.PresenceService = appServices.NewPresenceService(
		deps.Repos.PresenceRepository,
		deps.Feed,
		lgr,
		cfg.PresenceHeartbeat(),
		cfg.PresenceIdleAfter(),
		cfg.PresenceOfflineAfter(),
	)
	deps.ReactionService = appServices.NewReactionService(
		deps.Repos.ReactionRepository,
		deps.Repos.MessageRepository,
		deps.Repos.ParticipantRepository,
		deps.Feed,
		lgr,
	)
	deps.ConversationService = appServices.NewConversationService(
		deps.MessageService,
		deps.ReactionService,
		deps.TypingService,
		deps.PresenceService,
		deps.Repos.MessageRepository,
		deps.Repos.ParticipantRepository,
		lgr,
	)

	deps.Hub = realtime.NewHub(lgr)
	deps.Hub.AttachFeed(deps.Feed)
	deps.WSHandler = realtime.NewHandler(
		deps.Hub,
		deps.Repos.ParticipantRepository,
		deps.TypingService,
		deps.PresenceService,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.MessageController = appControllers.NewMessageController(deps.MessageService)
	deps.TypingController = appControllers.NewTypingController(deps.TypingService)
	deps.PresenceController = appControllers.NewPresenceController(deps.PresenceService)
	deps.ReactionController = appControllers.NewReactionController(deps.ReactionService)
	deps.ConversationController = appControllers.NewConversationController(deps.ConversationService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	// Setup Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"), ginSwagger.DefaultModelsExpandDepth(1)))

	appRoutes.SetupRouter(router,
		deps.MessageController,
		deps.TypingController,
		deps.PresenceController,
		deps.ReactionController,
		deps.ConversationController,
		deps.WSHandler,
		deps.AuthMiddleware,
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
