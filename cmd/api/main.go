// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/bootstrap"
	"kiosk-backend/internal/config"
	"kiosk-backend/internal/handler"
	"kiosk-backend/internal/hub"
	"kiosk-backend/internal/orchestrator"
	"kiosk-backend/internal/service"
	"kiosk-backend/internal/storage"

	"github.com/gorilla/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── Session registry ──────────────────────────────────────────────────────
	template, err := bootstrap.Template(cfg)
	if err != nil {
		log.Fatal("Failed to load checklist template: ", err)
	}

	store, err := bootstrap.OpenStore(ctx, cfg, template)
	if err != nil {
		log.Fatal("Failed to open session registry: ", err)
	}
	defer store.Close()

	// ── Backend (mock by default, Gemini when BACKEND=gemini) ─────────────────
	b, closeBackend, err := bootstrap.Backend(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create backend: ", err)
	}
	defer closeBackend()

	// ── Recording archive ─────────────────────────────────────────────────────
	recordings, err := storage.NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		log.Fatal("Failed to prepare upload dir: ", err)
	}
	log.Println("Archiving recordings at", cfg.UploadDir)

	// ── Services ──────────────────────────────────────────────────────────────
	sessions := service.NewSessionService(store, template)
	authService := auth.NewService(auth.MockVerifier{}, auth.Config{
		ChallengeTTL: cfg.ChallengeTTL,
		TokenTTL:     cfg.TokenTTL,
		MaxAttempts:  cfg.AuthMaxAttempts,
	})
	go authService.RunSweeper(ctx, time.Minute)

	turns := orchestrator.New(b, orchestrator.Config{
		PivotLanguage: cfg.PivotLanguage,
		MinConfidence: cfg.MinConfidence,
	})

	responses := hub.New()
	go responses.Run(ctx)

	r := handler.NewRouter(handler.Deps{
		Sessions:       sessions,
		Auth:           authService,
		Orchestrator:   turns,
		Storage:        recordings,
		Hub:            responses,
		UploadDir:      cfg.UploadDir,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// ── CORS: read from env, not hardcoded ────────────────────────────────────
	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	// ── HTTP Server with timeouts ─────────────────────────────────────────────
	// WriteTimeout covers a full mock turn (about six seconds) with room for retries.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.CombinedLoggingHandler(os.Stdout, cors(r)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── Graceful Shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Kiosk service running on :%s (registry=%s, backend=%s)", cfg.Port, cfg.RegistryDriver, cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	<-quit
	log.Println("Shutdown signal received, draining requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Forced shutdown: ", err)
	}
	stop()
	log.Println("Server stopped cleanly")
}
