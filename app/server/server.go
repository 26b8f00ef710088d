package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"vta/app/agent"
	"vta/app/api"
	"vta/engine"
	"vta/model"
	"vta/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
	app        *fiber.App
	holder     *engine.Holder
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
		holder:     engine.NewHolder(),
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("error during shutdown", "error", err.Error())
		}
	}
	s.logger.Info("server stopped")
}

// Run starts serving immediately and constructs the query engine in the
// background. Until construction completes the question endpoint answers
// with service-unavailable; the welcome and health endpoints always work.
func (s *Server) Run() {
	go s.buildEngine(context.Background())

	var (
		app            = fiber.New(config)
		checkHandler   = api.NewCheckHandler()
		requestHandler = api.NewRequestHandler(s.holder)
		check          = app.Group("/check")
	)
	s.app = app

	app.Use(cors.New())

	check.Get("/healthy", checkHandler.HandleHealthy)
	app.Get("/", requestHandler.HandleWelcome)
	app.Post("/", requestHandler.HandleQuestion)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

// buildEngine wires the embedding capability, the vector collection and the
// answer agent. A failure here leaves the process up but the question
// endpoint permanently degraded.
func (s *Server) buildEngine(ctx context.Context) {
	collection := getEnv("COLLECTION_NAME", "virtual_ta_collection")
	s.logger.Info("connecting to collection", "collection", collection)

	pool, err := store.NewPostgresStore(ctx, postgresConnStr(), collection)
	if err != nil {
		s.logger.Error("failed to connect to Postgres", "error", err.Error())
		s.holder.Fail(err)
		return
	}

	if err := pool.Init(ctx); err != nil {
		s.logger.Error("failed to init collection", "error", err.Error())
		s.holder.Fail(err)
		return
	}

	embedder, err := model.NewOpenAIEmbedder(model.OpenAIConfig{
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   getEnv("EMBEDDING_MODEL", model.DefaultEmbeddingModel),
	})
	if err != nil {
		s.holder.Fail(err)
		return
	}

	ag, err := agent.New(agent.Config{
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   getEnv("CHAT_MODEL", agent.DefaultChatModel),
	})
	if err != nil {
		s.holder.Fail(err)
		return
	}

	topK, _ := strconv.Atoi(getEnv("TOP_K", "5"))
	s.holder.Set(engine.New(embedder, pool, ag, topK))
	s.logger.Info("virtual TA engine initialized")
}

func postgresConnStr() string {
	port, _ := strconv.Atoi(getEnv("PG_PORT", "5432"))
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
