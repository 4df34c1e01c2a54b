package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"longevity-advisor/internal/config"
	"longevity-advisor/internal/core"
	"longevity-advisor/internal/db"
	httpserver "longevity-advisor/internal/http"
	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/logging"
	"longevity-advisor/internal/report"
	"longevity-advisor/internal/scripts"
	"longevity-advisor/internal/session"
)

func main() {
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	checks := map[string]httpserver.HealthChecker{}

	var repo *db.Repository
	var notifier *db.Notifier
	if cfg.DB.Enabled {
		conn, err := connectDB(ctx, cfg.DB.URL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer conn.Close()
		repo = db.NewRepository(conn)
		notifier = db.NewNotifier(conn, cfg.DB.NotifyChannel)
		checks["postgres"] = repo
	} else {
		slog.Warn("database disabled; accounts and report history are unavailable")
	}

	var store session.Store = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rs := session.NewRedisStore(session.RedisOptions{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLHours) * time.Hour,
		})
		defer rs.Close()
		store = rs
		checks["redis"] = rs
		slog.Info("using redis session store", "addr", cfg.Redis.Addr)
	}

	models := make(map[string]llm.Client, len(cfg.LLM.Providers))
	for _, p := range cfg.LLM.Providers {
		if p.APIKey == "" {
			slog.Warn("provider has no API key", "provider", p.Name)
		}
		models[p.Name] = llm.NewRetryClient(llm.NewOpenAIClient(p), cfg.LLM.MaxRetries, 500*time.Millisecond)
	}
	aux := models[cfg.LLM.Auxiliary]

	runner := &scripts.Runner{
		Python:  cfg.Scripts.Python,
		Dir:     cfg.Scripts.Dir,
		Timeout: time.Duration(cfg.Scripts.TimeoutSec) * time.Second,
	}
	pipeline := report.NewPipeline(cfg.Markers, &report.Enricher{
		Retriever: scripts.NewLiterature(runner, cfg.Scripts.MaxRetrievals),
		Timeout:   time.Duration(cfg.Scripts.RetrieveTimeout) * time.Second,
	})

	chat := core.NewChatService(models, cfg.LLM.Default, pipeline)
	chat.ChatTimeout = cfg.ChatTimeout()
	chat.Sessions = store
	chat.RoundTrip = &core.RoundTrip{
		LLM: aux,
		Options: llm.Options{
			Temperature: cfg.LLM.Translation.Temperature,
			MaxTokens:   cfg.LLM.Translation.MaxTokens,
		},
	}
	adviceOpts := llm.Options{Temperature: cfg.LLM.Advice.Temperature, MaxTokens: cfg.LLM.Advice.MaxTokens}
	// the advice model name is only meaningful on the Moonshot endpoint
	if cfg.LLM.Auxiliary == "kimi" {
		adviceOpts.Model = cfg.LLM.Advice.Model
	}
	chat.Lifestyle = &core.LifestyleWriter{
		Assessor:      &scripts.Lifestyle{Runner: runner},
		Advisor:       aux,
		Options:       adviceOpts,
		AdviceTimeout: time.Duration(cfg.LLM.Advice.TimeoutSec) * time.Second,
	}
	pdf := &core.PDFWriter{Renderer: &scripts.PDF{Runner: runner}, Dir: cfg.Files.PDFDir}
	intake := &core.Intake{
		Scorer:     &scripts.Scorer{Runner: runner},
		Sessions:   store,
		Locks:      chat.Locks,
		UploadDir:  cfg.Files.UploadDir,
		SampleFile: cfg.Files.SampleFile,
	}

	srv := &httpserver.Server{
		Chat:           chat,
		Intake:         intake,
		Checks:         checks,
		PDFDir:         cfg.Files.PDFDir,
		StaticDir:      cfg.Server.StaticDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		AllowOrigins:   cfg.Server.AllowOrigins,
	}
	// assigned only when set so the interfaces stay nil without a database
	if repo != nil {
		pdf.Store = repo
		pdf.Notifier = notifier
		intake.Files = repo
		srv.Users = repo
		srv.History = repo
	}
	chat.PDF = pdf

	for _, dir := range []string{cfg.Files.UploadDir, cfg.Files.PDFDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create %s: %v", dir, err)
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		// final reports chain model calls, translation, retrieval and rendering
		WriteTimeout: cfg.ChatTimeout() + 10*time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.Addr(), "model", cfg.LLM.Default, "db", cfg.DB.Enabled)
	waitForShutdown(server, time.Duration(cfg.Server.ShutdownGrace)*time.Second)
}

func connectDB(ctx context.Context, url string) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := db.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func waitForShutdown(server *http.Server, grace time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
