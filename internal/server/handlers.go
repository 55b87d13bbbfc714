package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fitfind/fitfind/internal/blobstore"
	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/pipeline"
	"github.com/fitfind/fitfind/internal/results"
	"github.com/fitfind/fitfind/internal/shopping"
	"github.com/fitfind/fitfind/internal/storage"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
}

// searchResponse is the body of successful upload and redo calls.
type searchResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	*pipeline.Result
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "fitfind",
	})
}

func (s *Server) upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No image file provided"})
		return
	}
	if file.Size > s.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Image is too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Failed to read upload"})
		return
	}
	image, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	f.Close()
	if err != nil || len(image) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Empty or unreadable image"})
		return
	}

	mimeType := http.DetectContentType(image)
	if !allowedImageTypes[mimeType] {
		if declared := file.Header.Get("Content-Type"); allowedImageTypes[declared] {
			mimeType = declared
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unsupported image type: " + mimeType})
			return
		}
	}

	ctx := c.Request.Context()
	path := blobstore.NewObjectPath(mimeType)
	if err := s.blobs.Put(ctx, path, image, mimeType); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to store image"})
		return
	}

	session, err := s.store.CreateSession(path, mimeType)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create session"})
		return
	}

	locale := s.localeFrom(c)
	extract := formBool(c.PostForm("extract_direct_links"), s.opts.ExtractDirectLinks)
	log.Info().Str("sessionID", session.ID).Int("bytes", len(image)).Str("mime", mimeType).Msg("running search for upload")

	res := s.runner.Run(ctx, pipeline.Request{
		Image:    image,
		MIMEType: mimeType,
		Options:  s.runOptions(locale, extract, session.ID),
	})

	if res.Failure != nil {
		if err := s.store.FailSession(session.ID, res.Failure.Message); err != nil {
			log.Error().Err(err).Str("sessionID", session.ID).Msg("failed to mark session failed")
		}
		s.respondFailure(c, session.ID, res)
		return
	}

	if err := s.saveResult(session.ID, res); err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("failed to save session result")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "session_id": session.ID, "error": "Failed to save results"})
		return
	}
	s.respondResult(c, session.ID, res)
}

type redoRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Feedback  string `json:"feedback"`
	Country   string `json:"country"`
	Language  string `json:"language"`
	// ExtractDirectLinks overrides the server default when set.
	ExtractDirectLinks *bool `json:"extract_direct_links"`
}

func (s *Server) redo(c *gin.Context) {
	var req redoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_id is required"})
		return
	}

	session, err := s.store.GetSession(req.SessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionID", req.SessionID).Msg("failed to load session")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load session"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found"})
		return
	}
	if session.Conversation == "" {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Session has no conversation to redo"})
		return
	}

	var conv llm.Conversation
	if err := json.Unmarshal([]byte(session.Conversation), &conv); err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("corrupt stored conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Stored conversation is unreadable"})
		return
	}

	ctx := c.Request.Context()
	image, err := s.blobs.Get(ctx, session.ImagePath)
	if errors.Is(err, blobstore.ErrNotFound) {
		c.JSON(http.StatusGone, gin.H{"success": false, "error": "Original image is no longer available"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("path", session.ImagePath).Msg("failed to fetch session image")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Failed to fetch original image"})
		return
	}

	locale := shopping.Locale{Country: req.Country, Language: req.Language}
	if locale.Country == "" {
		locale.Country = s.opts.Locale.Country
	}
	if locale.Language == "" {
		locale.Language = s.opts.Locale.Language
	}
	extract := s.opts.ExtractDirectLinks
	if req.ExtractDirectLinks != nil {
		extract = *req.ExtractDirectLinks
	}

	log.Info().Str("sessionID", session.ID).Int("turns", conv.Len()).Msg("redoing search")
	res := s.runner.Continue(ctx, conv.WithImage(image), req.Feedback, s.runOptions(locale, extract, session.ID))
	if res.Failure != nil {
		// the previous result stays valid
		s.respondFailure(c, session.ID, res)
		return
	}

	if err := s.saveResult(session.ID, res); err != nil {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("failed to save redo result")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "session_id": session.ID, "error": "Failed to save results"})
		return
	}
	s.respondResult(c, session.ID, res)
}

type sessionResponse struct {
	Success       bool                   `json:"success"`
	ID            string                 `json:"session_id"`
	Status        storage.SessionStatus  `json:"status"`
	Queries       []string               `json:"search_queries"`
	FeedbackUsed  string                 `json:"feedback_used,omitempty"`
	TotalItems    int                    `json:"num_items_identified"`
	TotalProducts int                    `json:"num_products_found"`
	Error         string                 `json:"error,omitempty"`
	ClothingItems []results.ClothingItem `json:"clothing_items"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func (s *Server) getSession(c *gin.Context) {
	id := c.Param("id")
	session, err := s.store.GetSession(id)
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("failed to load session")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load session"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found"})
		return
	}

	items, err := s.store.GetClothingItems(id)
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("failed to load clothing items")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load clothing items"})
		return
	}
	if items == nil {
		items = []results.ClothingItem{}
	}

	c.JSON(http.StatusOK, sessionResponse{
		Success:       true,
		ID:            session.ID,
		Status:        session.Status,
		Queries:       session.Queries,
		FeedbackUsed:  session.FeedbackUsed,
		TotalItems:    session.TotalItems,
		TotalProducts: session.TotalProducts,
		Error:         session.Error,
		ClothingItems: items,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	})
}

func (s *Server) saveResult(sessionID string, res *pipeline.Result) error {
	var items []results.ClothingItem
	if res.CleanedData != nil {
		items = res.CleanedData.ClothingItems
	}
	if err := s.store.SaveClothingItems(sessionID, items); err != nil {
		return err
	}

	var conv, feedback string
	if res.Conversation != nil {
		b, err := json.Marshal(res.Conversation.Serializable())
		if err != nil {
			return err
		}
		conv = string(b)
		feedback = res.Conversation.FeedbackUsed
	}

	return s.store.UpdateSessionResult(sessionID, storage.SessionResult{
		Queries:       res.Queries,
		Conversation:  conv,
		FeedbackUsed:  feedback,
		TotalItems:    res.ItemsIdentified,
		TotalProducts: res.ProductsFound,
	})
}

func (s *Server) respondResult(c *gin.Context, sessionID string, res *pipeline.Result) {
	out := *res
	out.Conversation = nil
	c.JSON(http.StatusOK, searchResponse{Success: true, SessionID: sessionID, Result: &out})
}

func (s *Server) respondFailure(c *gin.Context, sessionID string, res *pipeline.Result) {
	body := gin.H{
		"success":    false,
		"session_id": sessionID,
		"error":      res.Failure.Message,
		"kind":       res.Failure.Kind,
	}
	if res.Failure.RawResponse != "" {
		body["raw_response"] = res.Failure.RawResponse
	}
	c.JSON(StatusForFailure(res.Failure.Kind), body)
}

// StatusForFailure maps a pipeline failure kind to an HTTP status.
func StatusForFailure(kind pipeline.FailureKind) int {
	switch kind {
	case pipeline.FailureInput:
		return http.StatusBadRequest
	case pipeline.FailureNoItems:
		return http.StatusUnprocessableEntity
	case pipeline.FailureUpstream, pipeline.FailureParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) localeFrom(c *gin.Context) shopping.Locale {
	return shopping.Locale{
		Country:  c.DefaultPostForm("country", s.opts.Locale.Country),
		Language: c.DefaultPostForm("language", s.opts.Locale.Language),
	}
}

func formBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
