package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"

	"seatwatch-backend/config"
	"seatwatch-backend/internal/api"
	"seatwatch-backend/internal/checker"
	"seatwatch-backend/internal/db"
	"seatwatch-backend/internal/notification"
	"seatwatch-backend/internal/poller"
	"seatwatch-backend/internal/store"
	"seatwatch-backend/internal/watch"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	// Setup logger
	out := logOutput(cfg.Logging)
	log.SetOutput(out)
	gin.DefaultWriter = out
	logger := log.New(out, "seatwatch ", log.LstdFlags)
	logger.Printf("configuration loaded successfully from %s", configPath)

	var (
		watchStore store.Store
		pushStore  store.PushStore
	)
	if cfg.Database.Driver == "memory" {
		watchStore = store.NewMemoryStore()
		logger.Println("using in-memory watch store; watches are lost on restart")
	} else {
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			logger.Fatalf("failed to initialize database: %v", err)
		}
		logger.Println("database initialized successfully")
		gormStore := store.NewGormStore(gormDB)
		watchStore = gormStore
		pushStore = gormStore
	}

	var webpushOptions *webpush.Options
	if cfg.Notification.Push.Enabled {
		if cfg.Notification.Push.PublicKey == "" || cfg.Notification.Push.PrivateKey == "" {
			logger.Fatalf("VAPID keys must be configured when push notifications are enabled.")
		}
		if pushStore == nil {
			logger.Fatalf("push notifications need a database driver, not %q", cfg.Database.Driver)
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Notification.Push.PublicKey,
			VAPIDPrivateKey: cfg.Notification.Push.PrivateKey,
			Subscriber:      cfg.Notification.Push.Subject,
			TTL:             cfg.Notification.Push.TTL,
		}
	}

	var channels []notification.Notifier
	if cfg.Notification.SMTP.Enabled {
		channels = append(channels, notification.NewEmailNotifier(cfg.Notification.SMTP))
	}
	if webpushOptions != nil {
		channels = append(channels, notification.NewPushNotifier(pushStore, webpushOptions))
	} else {
		pushStore = nil
	}
	if len(channels) == 0 {
		logger.Println("no notification channel is enabled; watches will stay active")
	}
	notifier := notification.NewFanout(channels...)

	sectionChecker := checker.NewHTTPChecker(cfg.Checker)
	service := watch.NewService(watchStore, sectionChecker)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := poller.NewPoller(cfg, watchStore, sectionChecker, notifier)
	go p.Run(ctx)

	handler := api.NewHandler(service, watchStore, sectionChecker, pushStore, webpushOptions,
		time.Duration(cfg.Server.RequestTimeout)*time.Second)
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// logOutput writes to stdout, and also to a rotated file when one is configured.
func logOutput(cfg config.LoggingConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
}
