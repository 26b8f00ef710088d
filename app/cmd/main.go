package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"vta/app/server"

	"github.com/joho/godotenv"
)

func init() {
	loadEnvVariables()
}

func main() {
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Fatal("OPENAI_API_KEY environment variable not set")
	}
	if os.Getenv("OPENAI_BASE_URL") == "" {
		log.Println("Warning: OPENAI_BASE_URL not set, using provider default base URL")
	}

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":8000"
	}
	s := server.NewServer(addr)

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
}
