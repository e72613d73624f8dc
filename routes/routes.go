package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/controllers/auth"
	"po-tracking/controllers/client"
	"po-tracking/controllers/reservation"
	"po-tracking/controllers/server"
	"po-tracking/logger"
	"po-tracking/middleware"
	"po-tracking/services/mailer"
	"po-tracking/services/scheduler"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, settings *config.Settings, asyncLogger *logger.AsyncLogger, m *mailer.Mailer, sched *scheduler.Scheduler) {
	authController := auth.NewAuthController(settings)
	reservationController := reservation.NewReservationController(db, asyncLogger, m, sched)
	clientController := client.NewClientController(db)

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Get("/health", server.Health(db, settings))
	api.Post("/login", authController.Login)

	/*=============================================================================
	| Admin Routes
	===============================================================================*/
	admin := api.Group("", middleware.RequireAdmin(settings.JWTSecret))

	admin.Get("/reservas", reservationController.List)
	admin.Get("/reservas/:id", reservationController.Get)
	admin.Post("/reservas/:id/marcar-oc-recibida", reservationController.MarkPOReceived)
	admin.Post("/reservas/:id/reenviar-correo", reservationController.ResendNotice)
	admin.Delete("/reservas/:id/oc", reservationController.DeletePO)

	admin.Get("/clientes", clientController.List)
	admin.Post("/clientes", clientController.Upsert)

	admin.Post("/process-now", reservationController.ProcessNow)
	admin.Get("/stats", reservationController.Stats)
}
