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
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/calebwhitt/imagevault/config"
	"github.com/calebwhitt/imagevault/database"
	"github.com/calebwhitt/imagevault/handlers"
	"github.com/calebwhitt/imagevault/repository"
	"github.com/calebwhitt/imagevault/services"
	"github.com/calebwhitt/imagevault/storage"
	"github.com/calebwhitt/imagevault/workers"
)

const assetRoutePrefix = "/files/"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	var store storage.Store
	var localStore *storage.LocalStorage
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		store, err = storage.NewS3Storage(context.Background(), storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	default:
		localStore, err = storage.NewLocalStorage(cfg.LocalStoragePath, cfg.PublicBaseURL)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize local storage: %v", err)
		}
		store = localStore
	}

	imageRepo := repository.NewImageRepository(db)
	variationRepo := repository.NewVariationRepository(db)
	jobRepo := repository.NewJobRepository(db)

	queue := workers.NewJobQueue()
	imageService := services.NewImageService(imageRepo, variationRepo, jobRepo, store, queue)

	worker := workers.NewThumbnailWorker(queue, jobRepo, imageService, cfg.ThumbnailHeight)
	worker.Start()

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	imageHandler := &handlers.ImageHandler{Service: imageService}
	jobHandler := &handlers.JobHandler{Service: imageService}

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Post("/", imageHandler.Upload)
			r.Route("/{image_id}", func(r chi.Router) {
				r.Get("/", imageHandler.GetImage)
				r.Delete("/", imageHandler.DeleteImage)
				r.Get("/variations", imageHandler.GetImageWithVariations)
				r.Get("/variation", imageHandler.GetVariation)
			})
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{job_id}", jobHandler.GetJob)
		})
	})

	if localStore != nil {
		r.Get(assetRoutePrefix+"*", handlers.AssetServer(localStore.BasePath(), assetRoutePrefix))
	}

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during server shutdown: %v", err)
	}
	worker.Stop()
}
