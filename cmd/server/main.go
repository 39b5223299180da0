package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glass-rag/internal/chromemdb"
	"glass-rag/internal/config"
	"glass-rag/internal/db"
	"glass-rag/internal/embedding"
	"glass-rag/internal/ingest"
	"glass-rag/internal/llmservice"
	"glass-rag/internal/rag"
	"glass-rag/internal/server"
	"glass-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	// Optional .env for DSN and other secrets.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)
	defer bunDB.Close()

	if err := db.InitDB(ctx, bunDB); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "chromem":
		store, err = chromemdb.NewStore(cfg.VectorStore.Path, cfg.VectorStore.Collection)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating chromem vector store")
		}
	default:
		store = db.NewDocumentStore(bunDB)
	}

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.NewOllamaClient(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	chats := db.NewChatStore(bunDB)
	ingestor := ingest.NewIngestor(embedder, store, &cfg.RAG)
	ragService := rag.NewService(store, chats, embedder, llm, &cfg.RAG)

	srv := server.New(ingestor, ragService, chats)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Router(&cfg.Server),
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
