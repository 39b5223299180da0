package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"glass-rag/internal/chunker"
	"glass-rag/internal/models"
	"glass-rag/internal/parser"
)

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "no_file", "No file uploaded")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "unreadable_file", "Could not read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "unreadable_file", "Could not read uploaded file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	count, err := s.ingestor.Ingest(c.Request.Context(), data, mimeType, fileHeader.Filename)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		Success: true,
		File:    fileHeader.Filename,
		Chunks:  count,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_input", "Invalid request data")
		return
	}

	turn, err := s.chat.Chat(c.Request.Context(), req.ChatID, req.Message)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

func (s *Server) handleListChats(c *gin.Context) {
	chats, err := s.history.ListChats(c.Request.Context())
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (s *Server) handleCreateChat(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_input", "Invalid request data")
		return
	}

	chat, err := s.history.CreateChat(c.Request.Context(), req.Title)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (s *Server) handleGetMessages(c *gin.Context) {
	id, ok := chatID(c)
	if !ok {
		return
	}
	msgs, err := s.history.GetMessages(c.Request.Context(), id)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	id, ok := chatID(c)
	if !ok {
		return
	}
	if err := s.history.DeleteChat(c.Request.Context(), id); err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func chatID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_chat_id", "Invalid chat id")
		return 0, false
	}
	return id, true
}

// errorResponse is the standardized error envelope.
type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func respondWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{ErrorCode: code, Message: message})
}

// respondPipelineError maps pipeline errors onto the HTTP boundary. Caller
// mistakes get a specific 4xx; everything else collapses into one generic
// failure, with the detail kept in the server log only.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, parser.ErrUnsupportedType):
		respondWithError(c, http.StatusBadRequest, "unsupported_file_type", "Unsupported file type")
	case errors.Is(err, parser.ErrEmptyDocument):
		respondWithError(c, http.StatusBadRequest, "empty_document",
			"No text extracted from file. It may be scanned or image-based.")
	case errors.Is(err, chunker.ErrInvalidChunkConfig):
		respondWithError(c, http.StatusBadRequest, "invalid_configuration", "Invalid chunking configuration")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		respondWithError(c, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
	}
}
