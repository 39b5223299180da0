package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"glass-rag/internal/config"
	"glass-rag/internal/db"
	"glass-rag/internal/models"
)

// Ingestor processes one uploaded document into stored chunk records.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, mimeType, filename string) (int, error)
}

// ChatService answers one chat turn.
type ChatService interface {
	Chat(ctx context.Context, chatID int64, message string) (*models.ChatTurn, error)
}

// HistoryStore is the chat history CRUD surface exposed over HTTP.
type HistoryStore interface {
	CreateChat(ctx context.Context, title string) (*db.Chat, error)
	ListChats(ctx context.Context) ([]db.Chat, error)
	GetMessages(ctx context.Context, chatID int64) ([]db.ChatMessage, error)
	DeleteChat(ctx context.Context, chatID int64) error
}

// Server wires the pipeline services into the HTTP API.
type Server struct {
	ingestor Ingestor
	chat     ChatService
	history  HistoryStore
}

func New(ingestor Ingestor, chat ChatService, history HistoryStore) *Server {
	return &Server{ingestor: ingestor, chat: chat, history: history}
}

// Router builds the gin engine with CORS and all API routes.
func (s *Server) Router(cfg *config.ServerConfig) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches the API endpoints to an existing engine.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.POST("/chat", s.handleChat)
	api.GET("/history", s.handleListChats)
	api.POST("/history", s.handleCreateChat)
	api.GET("/history/:id", s.handleGetMessages)
	api.DELETE("/history/:id", s.handleDeleteChat)
}
