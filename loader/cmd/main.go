package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"vta/loader/internal"
	"vta/loader/service"
	"vta/model"
	"vta/store"
)

func init() {
	loadEnvVariables()
}

func main() {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable not set")
	}
	if os.Getenv("OPENAI_BASE_URL") == "" {
		log.Println("Warning: OPENAI_BASE_URL not set, using provider default base URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPostgresStore(ctx, postgresConnStr(), getEnv("COLLECTION_NAME", "virtual_ta_collection"))
	if err != nil {
		log.Fatal("error connecting to Postgres: ", err)
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error creating collection: ", err)
	}

	embedder, err := model.NewOpenAIEmbedder(model.OpenAIConfig{
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		APIKey:  apiKey,
		Model:   getEnv("EMBEDDING_MODEL", model.DefaultEmbeddingModel),
	})
	if err != nil {
		log.Fatal("error creating embedder: ", err)
	}

	counter, err := internal.NewTiktokenCounter(getEnv("CHAT_MODEL", "gpt-3.5-turbo"))
	if err != nil {
		log.Fatal("error loading token encoding: ", err)
	}

	chunkSize := getEnvInt("CHUNK_SIZE", internal.DefaultChunkSize)
	chunkOverlap := getEnvInt("CHUNK_OVERLAP", internal.DefaultChunkOverlap)
	splitter := internal.NewSentenceSplitter(chunkSize, chunkOverlap, counter)

	svc := service.New(pool, embedder, splitter, service.Config{
		DataDir: getEnv("DATA_DIR", "data"),
		Workers: getEnvInt("EMBED_WORKERS", 4),
	})

	if err := svc.Run(ctx); err != nil {
		log.Fatal("ingestion failed: ", err)
	}
	log.Println("Ingestion complete, collection is populated")
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

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
}
