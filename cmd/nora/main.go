package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/norahq/nora/internal/ai"
	"github.com/norahq/nora/internal/calendar"
	"github.com/norahq/nora/internal/commands"
	"github.com/norahq/nora/internal/config"
	"github.com/norahq/nora/internal/dbcontext"
	"github.com/norahq/nora/internal/keypool"
	"github.com/norahq/nora/internal/memory"
	"github.com/norahq/nora/internal/project"
	"github.com/norahq/nora/internal/report"
	"github.com/norahq/nora/internal/server"
	"github.com/norahq/nora/internal/session"
	"github.com/norahq/nora/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := store.NewBoltStore(cfg.DataDir + "/nora.db")
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	pool, err := keypool.NewManager(db, cfg.GeminiAPIKeys, time.Duration(cfg.ResetIntervalHrs)*time.Hour, nil)
	if err != nil {
		log.Fatalf("keypool: %v", err)
	}

	projectClient := project.NewClient(cfg.PlannerBaseURL, cfg.PlannerToken)
	calendarClient := calendar.NewClient(cfg.CalendarBaseURL, cfg.CalendarToken)
	contextClient := dbcontext.NewClient(cfg.PlannerBaseURL, cfg.PlannerToken)
	reportService := report.NewService(projectClient, nil)
	memoryStore := memory.New(db)

	pipeline := commands.NewPipeline(
		commands.NewCalendarProcessor(calendarClient, nil),
		commands.NewReportProcessor(reportService),
		commands.NewTaskPhaseProcessor(projectClient, "nora", nil),
	)

	dispatcher := ai.NewDispatcher(ai.NewGeminiProvider(cfg.GeminiModel), pool)
	agent := ai.NewAgent(dispatcher, pool, contextClient, memoryStore, db, pipeline)
	sessionMgr := session.NewManager()

	// Scheduled pool reset: clears rate-limit flags every reset interval.
	go func() {
		ticker := time.NewTicker(pool.ResetInterval())
		defer ticker.Stop()
		for range ticker.C {
			if err := pool.ResetAll(); err != nil {
				log.Printf("keypool: scheduled reset: %v", err)
			}
		}
	}()

	// Periodic cleanup of stale per-conversation locks to prevent memory leaks
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sessionMgr.Cleanup(1 * time.Hour)
		}
	}()

	handler := server.NewHandler(agent, pool, sessionMgr)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/chat", handler.HandleChat)
	r.Get("/pool", handler.HandlePoolStatus)
	r.Post("/pool/reset", handler.HandlePoolReset)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("nora: listening on :%s", cfg.Port)
		log.Printf("nora: %d API keys in pool, reset every %s", len(cfg.GeminiAPIKeys), pool.ResetInterval())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("nora: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	log.Println("nora: stopped")
}
