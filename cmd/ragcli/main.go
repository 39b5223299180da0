package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glass-rag/internal/chromemdb"
	"glass-rag/internal/config"
	"glass-rag/internal/db"
	"glass-rag/internal/embedding"
	"glass-rag/internal/helper"
	"glass-rag/internal/ingest"
	"glass-rag/internal/llmservice"
	"glass-rag/internal/rag"
	"glass-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

// Extensions the mime package does not know everywhere.
var extraMimeTypes = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".md":   "text/markdown",
	".txt":  "text/plain",
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Query to be answered")
	chats := flag.Bool("chats", false, "List stored chats")
	drop := flag.Bool("drop", false, "Drop the documents table before ingesting")
	flag.Parse()

	_ = godotenv.Load()

	if *filePath == "" && *query == "" && !*chats {
		log.Fatal().Msg("Please provide a document file using the -file flag, a query using the -query flag, or -chats")
	}
	if *filePath != "" && *query != "" {
		log.Fatal().Msg("Please provide either -file or -query, but not both")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *filePath != "":
		ingestFile(ctx, cfg, *filePath, *drop)
	case *query != "":
		answerQuery(ctx, cfg, *query)
	default:
		listChats(ctx, cfg)
	}
}

func ingestFile(ctx context.Context, cfg *config.Config, filePath string, drop bool) {
	store, cleanup := openStore(ctx, cfg, drop)
	defer cleanup()

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document file")
	}

	ingestor := ingest.NewIngestor(embedder, store, &cfg.RAG)
	count, err := ingestor.Ingest(ctx, data, mimeTypeOf(filePath), filepath.Base(filePath))
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	log.Info().Int("chunks", count).Str("file", filePath).Msg("Document ingested")
}

func answerQuery(ctx context.Context, cfg *config.Config, query string) {
	store, cleanup := openStore(ctx, cfg, false)
	defer cleanup()

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	llm, err := llmservice.NewOllamaClient(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	ragService := rag.NewService(store, nil, embedder, llm, &cfg.RAG)
	matches, err := ragService.Retrieve(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error retrieving context")
	}

	prompt := rag.BuildPrompt(matches, nil, query, cfg.RAG.HistoryLimit)
	reply, err := llm.Complete(ctx, prompt)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	fmt.Printf("Query:\n%s\n\n", query)
	fmt.Println("Sources:")
	for _, m := range matches {
		fmt.Printf("  %.3f  %s\n", m.Score, m.Chunk.Filename)
	}
	fmt.Printf("\nAssistant:\n%s\n\n", reply.Content)
}

func listChats(ctx context.Context, cfg *config.Config) {
	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)
	defer bunDB.Close()

	chats, err := db.NewChatStore(bunDB).ListChats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing chats")
	}
	helper.PrettyPrint(chats)
}

func openStore(ctx context.Context, cfg *config.Config, drop bool) (vectorstore.Store, func()) {
	if cfg.VectorStore.Backend == "chromem" {
		store, err := chromemdb.NewStore(cfg.VectorStore.Path, cfg.VectorStore.Collection)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating chromem vector store")
		}
		return store, func() {}
	}

	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)

	if drop {
		if err := db.DropDocuments(ctx, bunDB); err != nil {
			log.Fatal().Err(err).Msg("Error clearing documents")
		}
	}
	if err := db.InitDB(ctx, bunDB); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	return db.NewDocumentStore(bunDB), func() { bunDB.Close() }
}

func mimeTypeOf(filePath string) string {
	ext := filepath.Ext(filePath)
	if mt, ok := extraMimeTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
