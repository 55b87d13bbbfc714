package server

import (
	"context"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitfind/fitfind/internal/blobstore"
	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/pipeline"
	"github.com/fitfind/fitfind/internal/results"
	"github.com/fitfind/fitfind/internal/shopping"
	"github.com/fitfind/fitfind/internal/storage"
)

// DefaultMaxUploadBytes limits uploaded images.
const DefaultMaxUploadBytes = 16 << 20

// SessionStore persists search sessions and their cleaned items.
type SessionStore interface {
	CreateSession(imagePath, imageMIME string) (*storage.Session, error)
	GetSession(id string) (*storage.Session, error)
	UpdateSessionResult(id string, result storage.SessionResult) error
	FailSession(id, message string) error
	SaveClothingItems(sessionID string, items []results.ClothingItem) error
	GetClothingItems(sessionID string) ([]results.ClothingItem, error)
}

// Runner executes pipeline runs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Result
	Continue(ctx context.Context, conv llm.Conversation, feedback string, opts pipeline.Options) *pipeline.Result
}

// Options configure request handling.
type Options struct {
	Locale             shopping.Locale
	ExtractDirectLinks bool
	// ResultsDir enables per-session artifact files when set.
	ResultsDir     string
	MaxUploadBytes int64
}

// Server is the HTTP surface of the pipeline.
type Server struct {
	store  SessionStore
	blobs  blobstore.Store
	runner Runner
	opts   Options
}

func New(store SessionStore, blobs blobstore.Store, runner Runner, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{store: store, blobs: blobs, runner: runner, opts: opts}
}

// Router returns the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.MaxMultipartMemory = s.opts.MaxUploadBytes

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/upload", s.upload)
		api.POST("/redo", s.redo)
		api.GET("/sessions/:id", s.getSession)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) runOptions(locale shopping.Locale, extractLinks bool, sessionID string) pipeline.Options {
	opts := pipeline.Options{
		Locale:              locale,
		IncludeConversation: true,
		ExtractDirectLinks:  extractLinks,
	}
	if s.opts.ResultsDir != "" {
		opts.OutputBase = filepath.Join(s.opts.ResultsDir, sessionID)
		opts.SaveRaw = true
		opts.SaveCleaned = true
		opts.SaveCSV = true
	}
	return opts
}
