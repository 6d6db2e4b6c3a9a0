package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/config"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/handlers"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/middleware"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/service"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()
	config.ValidateEnv()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongodb")
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("mongodb disconnect")
		}
	}()
	logger.Info().Str("db", cfg.DBName).Msg("connected to MongoDB")

	s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("s3")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SuperAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("super admin password hash")
	}
	superAdmin, err := db.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, string(hash))
	if err != nil {
		logger.Fatal().Err(err).Msg("super admin seed")
	}
	logger.Info().Str("uid", superAdmin.ID.Hex()).Msg("super admin ready")

	guard := authz.Guard{SuperAdminID: superAdmin.ID.Hex()}
	assets := &service.Assets{Store: s3Service, Log: logger}

	authHandler := &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, Log: logger}
	usersHandler := &handlers.UsersHandler{DB: db, Guard: guard, Log: logger}
	articlesHandler := &handlers.ArticlesHandler{
		DB:             db,
		Assets:         assets,
		Guard:          guard,
		ReaderHashSalt: cfg.ReaderHashSalt,
		Log:            logger,
	}
	uploadHandler := &handlers.UploadHandler{
		DB:       db,
		Assets:   assets,
		Guard:    guard,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
		Log:      logger,
	}
	assetsHandler := &handlers.AssetsHandler{Assets: assets, Guard: guard, Log: logger}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to storybridge."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Public content routes; a credential only broadens visibility.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWTSecret))
			r.Get("/articles", articlesHandler.List)
			r.Get("/articles/{id}", articlesHandler.Get)
			r.Post("/articles/{id}/read", articlesHandler.RecordRead)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Post("/auth/refresh", authHandler.Refresh)

			r.Get("/users", usersHandler.List)
			r.Post("/users", usersHandler.Create)
			r.Patch("/users/{id}/role", usersHandler.UpdateRole)
			r.Patch("/users/{id}/disabled", usersHandler.SetDisabled)

			r.Post("/articles", articlesHandler.Create)
			r.Put("/articles/{id}", articlesHandler.Update)
			r.Delete("/articles/{id}", articlesHandler.Delete)

			r.Post("/assets/upload", uploadHandler.Upload)
			r.Post("/assets/promote", assetsHandler.Promote)
			r.Delete("/assets", assetsHandler.Delete)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
