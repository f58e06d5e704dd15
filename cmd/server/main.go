package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/restforge/restforge/internal/api"
	"github.com/restforge/restforge/internal/auth"
	"github.com/restforge/restforge/internal/config"
	"github.com/restforge/restforge/internal/crud"
	"github.com/restforge/restforge/internal/db"
	"github.com/restforge/restforge/internal/expand"
	"github.com/restforge/restforge/internal/middleware"
	"github.com/restforge/restforge/internal/repository"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Register resources
	projectStore := repository.NewTableStore(conn.Pool, repository.Table{
		Name:    "projects",
		Columns: []string{"name", "status", "archived"},
	})
	projects := &crud.Resource{
		Name:        "projects",
		DisplayName: "Project",
		IDParam:     "projectId",
		Columns:     []string{"name", "status", "archived"},
		Sortable:    []string{"name", "status", "createdAt", "updatedAt"},
		Store:       projectStore,
	}

	taskStore := repository.NewTableStore(conn.Pool, repository.Table{
		Name:    "tasks",
		Columns: []string{"projectId", "title", "status", "priority"},
	})
	tasks := &crud.Resource{
		Name:        "tasks",
		DisplayName: "Task",
		IDParam:     "taskId",
		Columns:     []string{"projectId", "title", "status", "priority"},
		Sortable:    []string{"title", "status", "priority", "createdAt", "updatedAt"},
		Store:       taskStore,
	}

	endpoints := []*api.Endpoint{
		{
			Controller: crud.NewController(projects, nil, crud.Options{
				Filtering:            true,
				DeletionRestrictions: map[string]any{"archived": false},
			}, cfg.App.Query),
			Expander: expand.NewExpander(nil),
		},
		{
			Controller: crud.NewController(tasks, []*crud.Resource{projects}, crud.Options{
				Filtering:       true,
				EntityFilterIDs: []string{"projectId", "status", "priority", "title"},
			}, cfg.App.Query),
			Expander: expand.NewExpander(map[string]crud.Store{"projectId": projectStore}),
		},
	}

	router := api.NewRouter(conn.Pool, endpoints)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := middleware.LoggingMiddleware(auth.Middleware(corsHandler.Handler(router)))

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting REST server on :%d", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
