package client

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"po-tracking/logger"
	"po-tracking/models/clientconfig"
	"po-tracking/types"
)

// ClientController handles the per-agency configuration endpoints
type ClientController struct {
	DB *gorm.DB
}

// NewClientController creates a new client controller
func NewClientController(db *gorm.DB) *ClientController {
	return &ClientController{DB: db}
}

// List returns every agency configuration.
func (cc *ClientController) List(c *fiber.Ctx) error {
	var clients []clientconfig.ClientConfig
	if err := cc.DB.Order("agency_name ASC").Find(&clients).Error; err != nil {
		logger.Error("Failed to list client configs", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Clients retrieved",
		Status:  fiber.StatusOK,
		Data:    clients,
	})
}

type upsertRequest struct {
	AgencyName      string  `json:"agency_name"`
	ContactEmail    *string `json:"contact_email"`
	ContactPhone    *string `json:"contact_phone"`
	RequiresPO      *bool   `json:"requires_po"`
	Active          *bool   `json:"active"`
	ReminderDays    *int    `json:"reminder_days"`
	FinalNoticeDays *int    `json:"final_notice_days"`
	Notes           *string `json:"notes"`
}

// Upsert creates or updates an agency configuration, keyed by agency
// name. Omitted fields keep their current (or default) values.
func (cc *ClientController) Upsert(c *fiber.Ctx) error {
	var req upsertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}

	req.AgencyName = strings.TrimSpace(req.AgencyName)
	if req.AgencyName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Message: "agency_name is required",
			Status:  fiber.StatusBadRequest,
		})
	}

	var client clientconfig.ClientConfig
	err := cc.DB.Where("agency_name = ?", req.AgencyName).First(&client).Error
	if err == gorm.ErrRecordNotFound {
		client = clientconfig.ClientConfig{
			AgencyName: req.AgencyName,
			RequiresPO: true,
			Active:     true,
		}
	} else if err != nil {
		logger.Error("Failed to look up client config", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	if req.ContactEmail != nil {
		client.ContactEmail = req.ContactEmail
	}
	if req.ContactPhone != nil {
		client.ContactPhone = req.ContactPhone
	}
	if req.RequiresPO != nil {
		client.RequiresPO = *req.RequiresPO
	}
	if req.Active != nil {
		client.Active = *req.Active
	}
	if req.ReminderDays != nil && *req.ReminderDays > 0 {
		client.ReminderDays = *req.ReminderDays
	}
	if req.FinalNoticeDays != nil && *req.FinalNoticeDays > 0 {
		client.FinalNoticeDays = *req.FinalNoticeDays
	}
	if req.Notes != nil {
		client.Notes = req.Notes
	}

	if err := cc.DB.Save(&client).Error; err != nil {
		logger.Error("Failed to save client config", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Message: "Database error",
			Status:  fiber.StatusInternalServerError,
		})
	}

	logger.Successf("Client config saved for agency %s", client.AgencyName)

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Client saved",
		Status:  fiber.StatusOK,
		Data:    client,
	})
}
