package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"pinyinhub/config"
	"pinyinhub/core/auth"
	"pinyinhub/core/enrich"
	"pinyinhub/core/mirror"
	"pinyinhub/core/translate"
	"pinyinhub/db"
	"pinyinhub/logger"
	"pinyinhub/model"
	"pinyinhub/repository"
	"pinyinhub/storage"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(getLogLevel()),
		OutputPath: "logs/pinyinhub.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // 创建歌曲会同步等待翻译服务
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端（可选）
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	// 用户表走 GORM
	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database with GORM: %v", err)
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(&model.User{}); err != nil {
		log.Fatalf("Failed to migrate models: %v", err)
	}

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Connect to Redis. The cache layer degrades to pass-through when
	// Redis is unavailable.
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, caching disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		log.Println("Successfully connected to Redis")
	}

	auth.InitJWT(cfg.JWTSecret)

	ensureDirExists(cfg.PublicDir)
	ensureDirExists(cfg.SongsDir)

	songRepo := repository.NewMySQLSongRepository(db.DB)
	userRepo := repository.NewGormUserRepository(db.GormDB)

	translator := translate.NewClient(&translate.Config{
		APIBaseURL:  cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIKey,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		RPS:         cfg.TranslateRPS,
	})
	mirrorGen := mirror.NewGenerator(cfg.SongsDir, cfg.SiteBaseURL, cfg.MinioBucket)
	pipeline := enrich.NewPipeline(songRepo, translator, mirrorGen, cfg.TranslateTimeout)

	apiHandler := NewAPIHandler(songRepo, userRepo, pipeline, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)

	// 歌曲相关的API端点
	router.HandleFunc("/api/songs", apiHandler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.CreateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/search", apiHandler.SearchSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/generate-html", apiHandler.AuthMiddleware(apiHandler.RegenerateHTMLHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/update-translations", apiHandler.AuthMiddleware(apiHandler.UpdateTranslationsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id:[0-9]+}", apiHandler.GetSongHandler).Methods(http.MethodGet)

	// 艺术家相关的API端点
	router.HandleFunc("/api/artists", apiHandler.GetArtistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/artists/{name}/songs", apiHandler.GetArtistSongsHandler).Methods(http.MethodGet)

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/user", apiHandler.AuthMiddleware(apiHandler.GetCurrentUserHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/user/songs", apiHandler.AuthMiddleware(apiHandler.GetUserSongsHandler)).Methods(http.MethodGet)

	// 静态镜像页面
	songsFileServer := http.FileServer(http.Dir(cfg.SongsDir))
	router.PathPrefix("/songs/").Handler(http.StripPrefix("/songs/", songsFileServer))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
	server.Handler = corsHandler.Handler(router)

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on %s...", cfg.HTTPAddr)
		log.Println("Submit songs via POST to /api/songs")
		log.Println("Browse songs via GET /api/songs and /api/songs/search?q=")
		log.Println("Static song pages are served under /songs/")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func getLogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Creating directory: %s", path)
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", path, err)
		}
	} else if err != nil {
		log.Fatalf("Failed to check directory %s: %v", path, err)
	}
}
