package reservation

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"po-tracking/constants"
	"po-tracking/logger"
	"po-tracking/models/clientconfig"
	"po-tracking/models/notification"
	"po-tracking/models/purchaseorder"
	reservationModel "po-tracking/models/reservation"
	"po-tracking/services/mailer"
	"po-tracking/services/scheduler"
	"po-tracking/types"
)

// ReservationController handles the admin reservation endpoints
type ReservationController struct {
	DB        *gorm.DB
	Logger    *logger.AsyncLogger
	Mailer    *mailer.Mailer
	Scheduler *scheduler.Scheduler
}

// NewReservationController creates a new reservation controller
func NewReservationController(db *gorm.DB, asyncLogger *logger.AsyncLogger, m *mailer.Mailer, sched *scheduler.Scheduler) *ReservationController {
	return &ReservationController{
		DB:        db,
		Logger:    asyncLogger,
		Mailer:    m,
		Scheduler: sched,
	}
}

// List returns reservations, newest first, with optional status and
// agency filters plus skip/limit paging.
func (rc *ReservationController) List(c *fiber.Ctx) error {
	query := rc.DB.Model(&reservationModel.Reservation{})

	if status := c.Query("estado"); status != "" {
		if !reservationModel.POStatus(status).IsValid() {
			return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
				Message: "Unknown status: " + status,
				Status:  fiber.StatusBadRequest,
			})
		}
		query = query.Where("po_status = ?", status)
	}
	if agency := c.Query("agencia"); agency != "" {
		query = query.Where("agency ILIKE ?", "%"+agency+"%")
	}

	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count reservations", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	var reservations []reservationModel.Reservation
	err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&reservations).Error
	if err != nil {
		logger.Error("Failed to list reservations", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Reservations retrieved",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"total":        total,
			"reservations": reservations,
		},
	})
}

// Get returns one reservation with its notification history and PO.
func (rc *ReservationController) Get(c *fiber.Ctx) error {
	res := rc.findByID(c)
	if res == nil {
		return nil
	}

	var notices []notification.Record
	if err := rc.DB.Where("reservation_id = ?", res.ID).Order("created_at ASC").Find(&notices).Error; err != nil {
		logger.Error("Failed to load notification history", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	var po *purchaseorder.Record
	var record purchaseorder.Record
	err := rc.DB.Where("reservation_id = ?", res.ID).First(&record).Error
	if err == nil {
		po = &record
	} else if err != gorm.ErrRecordNotFound {
		logger.Error("Failed to load purchase order", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Reservation retrieved",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"reservation":    res,
			"notifications":  notices,
			"purchase_order": po,
		},
	})
}

// MarkPOReceived registers a purchase order by hand. Calling it on a
// reservation that already has its PO is not an error; the existing
// state is simply reported back.
func (rc *ReservationController) MarkPOReceived(c *fiber.Ctx) error {
	res := rc.findByID(c)
	if res == nil {
		return nil
	}

	if res.POStatus == reservationModel.POStatusReceived {
		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Message: "Reservation already has its purchase order",
			Status:  fiber.StatusOK,
			Data:    res,
		})
	}

	username := "admin"
	if u, ok := c.Locals("username").(string); ok && u != "" {
		username = u
	}

	var body struct {
		PONumber string `json:"po_number"`
		Notes    string `json:"notes"`
	}
	// The body is optional; ignore parse errors for an empty payload.
	_ = c.BodyParser(&body)

	now := time.Now().UTC()
	record := purchaseorder.Record{
		ReservationID: res.ID,
		SenderEmail:   "manual",
		ReceivedAt:    now,
		PONumber:      optional(body.PONumber),
		Notes:         optional(body.Notes),
		Validated:     true,
		ValidatedAt:   &now,
		ValidatedBy:   &username,
	}

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&reservationModel.Reservation{}).
			Where("id = ?", res.ID).
			Update("po_status", reservationModel.POStatusReceived).Error
	})
	if err != nil {
		logger.Error("Failed to register manual PO", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	rc.Logger.Event("INFO", "admin",
		fmt.Sprintf("PO for reservation %s registered manually by %s", res.ReservationCode, username), &res.ID)

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Purchase order registered",
		Status:  fiber.StatusOK,
		Data:    record,
	})
}

// ResendNotice re-dispatches a notice tier on demand. An existing
// record of that tier is resent in place; a tier never dispatched gets
// a fresh send through the regular path.
func (rc *ReservationController) ResendNotice(c *fiber.Ctx) error {
	res := rc.findByID(c)
	if res == nil {
		return nil
	}

	var body struct {
		Kind string `json:"kind"`
	}
	if err := c.BodyParser(&body); err != nil || body.Kind == "" {
		body.Kind = string(notification.KindInitial)
	}

	kind := notification.NoticeKind(body.Kind)
	if !kind.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: "Unknown notice kind: " + body.Kind,
			Status:  fiber.StatusBadRequest,
		})
	}

	var existing notification.Record
	err := rc.DB.Where("reservation_id = ? AND kind = ? AND status <> ?",
		res.ID, kind, notification.StatusCancelled).
		Order("created_at DESC").
		First(&existing).Error

	sent := false
	switch {
	case err == nil && existing.BodyHTML != nil && existing.Recipient != constants.NoEmailPlaceholder:
		sent = rc.Mailer.Resend(rc.DB, &existing)
	case err == nil || err == gorm.ErrRecordNotFound:
		recipient := rc.agencyContact(res.Agency)
		sent = rc.Mailer.SendNotice(rc.DB, res, kind, recipient)
	default:
		logger.Error("Failed to look up notification record", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	if !sent {
		return c.Status(fiber.StatusBadGateway).JSON(types.ApiResponse{
			Message: "The notice could not be delivered; see the notification history",
			Status:  fiber.StatusBadGateway,
		})
	}

	rc.Logger.Event("INFO", "admin",
		fmt.Sprintf("%s notice manually resent for reservation %s", kind, res.ReservationCode), &res.ID)

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Notice sent",
		Status:  fiber.StatusOK,
	})
}

// DeletePO purges a stored purchase order, returning the reservation
// to the pending flow. The stored PDF is removed best-effort.
func (rc *ReservationController) DeletePO(c *fiber.Ctx) error {
	res := rc.findByID(c)
	if res == nil {
		return nil
	}

	var record purchaseorder.Record
	err := rc.DB.Where("reservation_id = ?", res.ID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
			Message: "Reservation has no purchase order on file",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load purchase order", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	err = rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&record).Error; err != nil {
			return err
		}
		return tx.Model(&reservationModel.Reservation{}).
			Where("id = ?", res.ID).
			Update("po_status", reservationModel.POStatusPending).Error
	})
	if err != nil {
		logger.Error("Failed to purge purchase order", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	if record.FilePath != nil {
		if rmErr := os.Remove(*record.FilePath); rmErr != nil {
			logger.Warningf("Could not remove PO file %s: %v", *record.FilePath, rmErr)
		}
	}

	rc.Logger.Event("WARNING", "admin",
		fmt.Sprintf("PO for reservation %s purged, back to pending", res.ReservationCode), &res.ID)

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Purchase order removed; reservation pending again",
		Status:  fiber.StatusOK,
	})
}

// ProcessNow triggers the follow-up sweep out of schedule.
func (rc *ReservationController) ProcessNow(c *fiber.Ctx) error {
	rc.Scheduler.RunNow()
	return c.Status(fiber.StatusAccepted).JSON(types.ApiResponse{
		Message: "Follow-up sweep started",
		Status:  fiber.StatusAccepted,
	})
}

// Stats returns the pipeline snapshot.
func (rc *ReservationController) Stats(c *fiber.Ctx) error {
	stats, err := rc.Scheduler.Stats()
	if err != nil {
		logger.Error("Failed to compute stats", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Stats retrieved",
		Status:  fiber.StatusOK,
		Data:    stats,
	})
}

// findByID loads the reservation in the :id parameter. On failure it
// writes the error response itself and returns nil.
func (rc *ReservationController) findByID(c *fiber.Ctx) *reservationModel.Reservation {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		_ = c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: "Invalid reservation id",
			Status:  fiber.StatusBadRequest,
		})
		return nil
	}

	var res reservationModel.Reservation
	err = rc.DB.First(&res, id).Error
	if err == gorm.ErrRecordNotFound {
		_ = c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
			Message: "Reservation not found",
			Status:  fiber.StatusNotFound,
		})
		return nil
	}
	if err != nil {
		logger.Error("Failed to load reservation", err)
		_ = c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
		return nil
	}

	return &res
}

func (rc *ReservationController) agencyContact(agency string) string {
	var client clientconfig.ClientConfig
	err := rc.DB.Where("agency_name = ? AND active = ?", agency, true).First(&client).Error
	if err != nil || client.ContactEmail == nil {
		return ""
	}
	return *client.ContactEmail
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
