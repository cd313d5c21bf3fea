package server

import (
	"journeybot/internal/auth"
	"journeybot/internal/config"
	"journeybot/internal/db"
	"journeybot/internal/journey"
	"journeybot/internal/stream"
	"journeybot/internal/telegram"
	"journeybot/internal/webhook"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, pg *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "journeybot",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowHeaders: "Authorization, Content-Type",
	}))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pg,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var q db.Querier
	if s.DB != nil {
		q = s.DB
	}
	store := journey.NewStore(q)

	var notifier journey.Notifier
	if s.Cfg.BotToken != "" {
		notifier = telegram.NewClient(s.Cfg.TelegramAPIURL, s.Cfg.BotToken, nil)
	}

	webhook.RegisterRoutes(s.App, journey.NewService(store, notifier, s.Stream))

	initData := auth.InitDataMiddleware(auth.NewVerifier(s.Cfg.BotToken, s.Cfg.AuthMaxAge))
	tokens := auth.NewService(s.Cfg.JWTSecret, s.Cfg.StreamTokenTTL)

	api := s.App.Group("/api")
	auth.RegisterRoutes(api, tokens, initData)
	journey.RegisterRoutes(api, store, initData)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, store, auth.StreamTokenMiddleware(tokens))
}

// errorHandler answers every fiber error as {"message": ...}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}
