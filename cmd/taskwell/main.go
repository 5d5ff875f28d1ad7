package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/davrius/taskwell/internal/api"
	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/realtime"
	"github.com/davrius/taskwell/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/viper"
)

func main() {
	config := loadConfig()

	database, err := db.OpenSQLite(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	repositories := db.NewRepositories(database)

	vapidPrivateKey := config.GetString("vapid_private_key")
	vapidPublicKey := config.GetString("vapid_public_key")
	if vapidPrivateKey == "" || vapidPublicKey == "" {
		vapidPrivateKey, vapidPublicKey, err = services.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("generate vapid keys failed: %v", err)
		}
		log.Printf("push: no VAPID keys configured, generated an ephemeral pair (subscriptions will not survive restart)")
	}

	hub := realtime.NewHub()
	pushService := services.NewPushService(
		repositories.Subscriptions,
		config.GetString("push_subscriber"),
		vapidPublicKey,
		vapidPrivateKey,
	)
	handler := api.NewHandler(repositories, hub, pushService, []byte(config.GetString("secret_key")))

	app := fiber.New(fiber.Config{
		AppName:               "Taskwell",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	api.RegisterRoutes(app, handler)

	reminders := services.NewReminderService(repositories, hub, pushService, config.GetDuration("sweep_interval"))
	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()
	reminders.Start(lifecycleCtx)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("server shutdown failed: %v", err)
		}
	}()

	port := config.GetString("port")
	log.Printf("Taskwell listening on http://0.0.0.0:%s (db: %s)", port, config.GetString("db_path"))
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func loadConfig() *viper.Viper {
	config := viper.New()
	config.SetEnvPrefix("taskwell")
	config.AutomaticEnv()

	config.SetDefault("port", "8080")
	config.SetDefault("db_path", filepath.Join("data", "taskwell.db"))
	config.SetDefault("secret_key", "change_me_in_production")
	config.SetDefault("sweep_interval", 30*time.Second)
	config.SetDefault("push_subscriber", "mailto:admin@taskwell.local")
	config.SetDefault("vapid_public_key", "")
	config.SetDefault("vapid_private_key", "")

	return config
}
