package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"po-tracking/config"
	"po-tracking/database"
	"po-tracking/logger"
	"po-tracking/routes"
	"po-tracking/services/mailbox"
	"po-tracking/services/mailer"
	"po-tracking/services/monitor"
	"po-tracking/services/scheduler"
)

func main() {
	settings := config.Load()

	logger.Success(settings.AppName + " v" + settings.AppVersion + " starting" +
		"\n\t\t\t\t\t\t******************************************************************************************\n")

	if errs := settings.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Warning("Configuration: " + e)
		}
	}

	db, err := database.InitDB(settings)
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return
	}

	asyncLogger := logger.NewAsyncLogger(db)
	go asyncLogger.ProcessLog()

	m, err := mailer.New(settings)
	if err != nil {
		logger.Error("Failed to initialize mailer", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Confirmation inbox poller
	confirmationClient := mailbox.NewClient(mailbox.Config{
		Host:     settings.IMAPHost,
		Port:     settings.IMAPPort,
		Username: settings.IMAPUsername,
		Password: settings.IMAPPassword,
		Mailbox:  settings.IMAPMailbox,
		UseSSL:   settings.IMAPUseSSL,
	})
	confirmationMonitor := monitor.New(confirmationClient, db,
		&monitor.ConfirmationProcessor{Settings: settings}, settings.IMAPCheckInterval)
	go confirmationMonitor.Run(ctx)

	// Purchase-order inbox poller
	poClient := mailbox.NewClient(mailbox.Config{
		Host:     settings.POInboxHost,
		Port:     settings.POInboxPort,
		Username: settings.POInboxUsername,
		Password: settings.POInboxPassword,
		Mailbox:  settings.POInboxMailbox,
		UseSSL:   settings.POInboxUseSSL,
	})
	poMonitor := monitor.New(poClient, db,
		&monitor.PurchaseOrderProcessor{Settings: settings}, settings.POInboxCheckInterval)
	go poMonitor.Run(ctx)

	sched := scheduler.New(db, settings, m, asyncLogger)
	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", err)
		return
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		AppName:      settings.AppName,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: os.Getenv("FRONTEND_URL"),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	routes.SetupRoutes(app, db, settings, asyncLogger, m, sched)

	// Graceful shutdown: stop the pollers and the scheduler, then drain
	// the HTTP server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Warning("Shutdown signal received")
		cancel()
		sched.Stop()
		_ = app.Shutdown()
	}()

	addr := settings.WebHost + ":" + settings.WebPort
	logger.Success("Admin API listening on " + addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("HTTP server stopped", err)
	}
}
