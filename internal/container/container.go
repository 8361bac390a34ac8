package container

import (
	"context"
	"fmt"

	"waitwith/internal/cache"
	"waitwith/internal/config"
	"waitwith/internal/database"
	"waitwith/internal/logger"
	"waitwith/internal/repository"
	"waitwith/internal/services"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type Container struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Genai  *genai.Client
	Logger *logrus.Logger
	TMDb   *services.TMDbClient
	DDay   *services.DDayService
	Chat   *services.ChatService
}

func New(ctx context.Context) (*Container, error) {
	log := logger.Get()
	settings := config.Get()

	db, err := database.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	// The cache is an optimization; run without it rather than refuse to start.
	redisClient, err := cache.New(ctx)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without response cache")
		redisClient = nil
	}

	tmdb := services.NewTMDbClient(&services.TMDbConfig{
		APIKey:    settings.TMDbAPIKey,
		BaseURL:   settings.TMDbBaseURL,
		ImageBase: settings.TMDbImageBase,
		Language:  settings.TMDbLanguage,
		Region:    settings.TMDbRegion,
		Redis:     redisClient,
		Logger:    log,
	})

	mediaRepo := repository.NewMediaRepository(db)
	waitRepo := repository.NewWaitRepository(db)

	// The assistant is selected by configuration presence; without a key the
	// service falls back to direct catalog lookups everywhere.
	var resolver services.MediaResolver = services.NewDirectResolver(tmdb)
	var genaiClient *genai.Client
	var chatModel *genai.GenerativeModel
	if settings.GeminiAPIKey != "" {
		genaiClient, err = genai.NewClient(ctx, option.WithAPIKey(settings.GeminiAPIKey))
		if err != nil {
			log.WithError(err).Warn("Gemini client unavailable, using direct TMDb lookups")
			genaiClient = nil
		} else {
			resolver = services.NewAssistantResolver(genaiClient, settings.GeminiModel, tmdb, log)
			chatModel = services.NewToolModel(genaiClient, settings.GeminiModel)
			log.WithField("model", settings.GeminiModel).Info("Assistant resolver enabled")
		}
	}

	dday := services.NewDDayService(resolver, mediaRepo, waitRepo, log)
	chat := services.NewChatService(dday, resolver, tmdb, chatModel, log)

	return &Container{
		DB:     db,
		Redis:  redisClient,
		Genai:  genaiClient,
		Logger: log,
		TMDb:   tmdb,
		DDay:   dday,
		Chat:   chat,
	}, nil
}

func (c *Container) Close() {
	if c.Genai != nil {
		c.Genai.Close()
		c.Logger.Info("Gemini client closed")
	}
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
