package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"longevity-advisor/internal/core"
	"longevity-advisor/pkg"
)

// Accounts stores registered users.
type Accounts interface {
	CreateUser(ctx context.Context, phone, passwordHash string, age int, gender string) (int64, error)
	GetCredentials(ctx context.Context, phone string) (int64, string, error)
}

// ReportHistory lists generated reports.
type ReportHistory interface {
	ListPDFReports(ctx context.Context, userID string, limit int) ([]pkg.PDFReport, error)
}

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	Chat    *core.ChatService
	Intake  *core.Intake
	Users   Accounts
	History ReportHistory
	// Checks are probed by /readyz, keyed by dependency name.
	Checks map[string]HealthChecker

	PDFDir         string
	StaticDir      string
	MaxUploadBytes int64
	AllowOrigins   []string
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	origins := s.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(s.maxUpload()+1<<20),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.handleReady)

	api := router.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/upload", s.handleUpload)
	api.POST("/use-sample-file", s.handleUseSample)
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)
	api.POST("/update-prompt", s.handleUpdatePrompt)
	api.POST("/switch-model", s.handleSwitchModel)
	api.POST("/new-chat", s.handleNewChat)
	api.GET("/download-pdf/:filename", s.handleDownloadPDF)
	api.GET("/pdf-history/:userId", s.handlePDFHistory)

	if s.PDFDir != "" {
		router.Static("/pdfs", s.PDFDir)
	}
	if s.StaticDir != "" {
		files := http.FileServer(http.Dir(s.StaticDir))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusNotFound, pkg.ErrorResponse{Error: "not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
	return router
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok"}
	code := http.StatusOK
	for name, check := range s.Checks {
		if err := check.Ping(ctx); err != nil {
			status[name] = "unhealthy: " + err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	c.JSON(code, status)
}

func (s *Server) maxUpload() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return 10 << 20
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
