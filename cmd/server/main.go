package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memberly/config"
	"memberly/internal/database"
	"memberly/internal/domain"
	"memberly/internal/repository"
	"memberly/internal/router"
	"memberly/internal/service"
	"memberly/pkg/secrets"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := repository.NewSettingRepository(db).SeedDefaults(map[string]string{
		domain.SettingPlatformFee: cfg.Payment.FallbackFee,
	}); err != nil {
		log.Fatalf("seed settings: %v", err)
	}

	key, err := hex.DecodeString(cfg.Secrets.Key)
	if err != nil {
		log.Fatalf("credentials key: %v", err)
	}
	box, err := secrets.New(key)
	if err != nil {
		log.Fatalf("credentials key: %v", err)
	}

	// the bot transport registers its own notifier in production; the logger
	// keeps local runs honest
	engine, sweeper := router.Setup(cfg, db, box, service.LogNotifier{})
	if err := sweeper.Start(); err != nil {
		log.Fatalf("sweeper: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	sweeper.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	log.Println("server stopped")
}
