package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"po-tracking/logger"
)

// Settings holds every process-wide setting. It is loaded once at
// startup from the environment (.env supported) and never hot-reloaded.
type Settings struct {
	AppName     string
	AppVersion  string
	Environment string

	// Monitoring inbox for reservation confirmations
	IMAPHost          string
	IMAPPort          int
	IMAPUsername      string
	IMAPPassword      string
	IMAPMailbox       string
	IMAPUseSSL        bool
	IMAPCheckInterval time.Duration

	// Monitoring inbox for incoming purchase orders
	POInboxHost          string
	POInboxPort          int
	POInboxUsername      string
	POInboxPassword      string
	POInboxMailbox       string
	POInboxUseSSL        bool
	POInboxCheckInterval time.Duration

	// SMTP submission
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string
	SMTPFromName  string
	SMTPUseTLS    bool

	// Scheduler
	SchedulerChecksPerDay int

	// Web / admin
	WebHost       string
	WebPort       string
	AdminUsername string
	AdminPassword string
	JWTSecret     string

	// Email follow-up policy
	EmailCCRecipients  string
	DaysForReminder    int
	DaysForFinalNotice int

	// Senders allowed to create reservations
	AllowedConfirmationSenders string

	// Agencies whose reservations require a purchase order
	AgenciesRequiringPO string

	// Storage path for received PO attachments
	POFilesDir string
}

// Load reads settings from the environment. Missing optional values get
// the same defaults the system has always shipped with.
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		logger.Warning("No .env file found, relying on environment variables")
	}

	return &Settings{
		AppName:     getEnv("APP_NAME", "PO Tracking Service"),
		AppVersion:  getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),

		IMAPHost:          os.Getenv("IMAP_HOST"),
		IMAPPort:          getEnvInt("IMAP_PORT", 993),
		IMAPUsername:      os.Getenv("IMAP_USERNAME"),
		IMAPPassword:      os.Getenv("IMAP_PASSWORD"),
		IMAPMailbox:       getEnv("IMAP_MAILBOX", "INBOX"),
		IMAPUseSSL:        getEnvBool("IMAP_USE_SSL", true),
		IMAPCheckInterval: time.Duration(getEnvInt("IMAP_CHECK_INTERVAL", 300)) * time.Second,

		POInboxHost:          os.Getenv("PO_INBOX_HOST"),
		POInboxPort:          getEnvInt("PO_INBOX_PORT", 993),
		POInboxUsername:      os.Getenv("PO_INBOX_USERNAME"),
		POInboxPassword:      os.Getenv("PO_INBOX_PASSWORD"),
		POInboxMailbox:       getEnv("PO_INBOX_MAILBOX", "INBOX"),
		POInboxUseSSL:        getEnvBool("PO_INBOX_USE_SSL", true),
		POInboxCheckInterval: time.Duration(getEnvInt("PO_CHECK_INTERVAL", 300)) * time.Second,

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "Kontrol Travel - Administración"),
		SMTPUseTLS:    getEnvBool("SMTP_USE_TLS", true),

		SchedulerChecksPerDay: getEnvInt("SCHEDULER_CHECKS_PER_DAY", 4),

		WebHost:       getEnv("WEB_HOST", "0.0.0.0"),
		WebPort:       getEnv("WEB_PORT", "8001"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "changeme123"),
		JWTSecret:     getEnv("JWT_SECRET", "changeme-secret"),

		EmailCCRecipients:  os.Getenv("EMAIL_CC_RECIPIENTS"),
		DaysForReminder:    getEnvInt("DAYS_FOR_REMINDER_1", 2),
		DaysForFinalNotice: getEnvInt("DAYS_FOR_REMINDER_2", 4),

		AllowedConfirmationSenders: os.Getenv("ALLOWED_CONFIRMATION_SENDERS"),
		AgenciesRequiringPO:        os.Getenv("AGENCIES_REQUIRING_PO"),

		POFilesDir: getEnv("PO_FILES_DIR", "po_files"),
	}
}

// CCRecipients returns the configured CC list, empty entries removed.
func (s *Settings) CCRecipients() []string {
	return splitTrim(s.EmailCCRecipients, false)
}

// Agencies returns the configured list of agencies that require PO tracking.
func (s *Settings) Agencies() []string {
	return splitTrim(s.AgenciesRequiringPO, false)
}

// AllowedSenders returns the lowercased list of senders allowed to
// submit reservation confirmations.
func (s *Settings) AllowedSenders() []string {
	return splitTrim(s.AllowedConfirmationSenders, true)
}

// IsSenderAllowed reports whether the given address may create reservations.
func (s *Settings) IsSenderAllowed(sender string) bool {
	sender = strings.ToLower(strings.TrimSpace(sender))
	for _, allowed := range s.AllowedSenders() {
		if sender == allowed {
			return true
		}
	}
	return false
}

// RequiresPO reports whether an agency is on the configured PO list.
func (s *Settings) RequiresPO(agency string) bool {
	agency = strings.TrimSpace(agency)
	for _, a := range s.Agencies() {
		if a == agency {
			return true
		}
	}
	return false
}

// Validate checks that the connection settings needed at runtime exist.
func (s *Settings) Validate() []string {
	var errs []string
	if s.IMAPHost == "" || s.IMAPUsername == "" {
		errs = append(errs, "confirmation inbox settings incomplete (IMAP_HOST / IMAP_USERNAME)")
	}
	if s.POInboxHost == "" || s.POInboxUsername == "" {
		errs = append(errs, "PO inbox settings incomplete (PO_INBOX_HOST / PO_INBOX_USERNAME)")
	}
	if s.SMTPHost == "" || s.SMTPUsername == "" {
		errs = append(errs, "SMTP settings incomplete (SMTP_HOST / SMTP_USERNAME)")
	}
	if len(s.Agencies()) == 0 {
		errs = append(errs, "no agencies configured in AGENCIES_REQUIRING_PO")
	}
	return errs
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(raw string, lower bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lower {
			part = strings.ToLower(part)
		}
		out = append(out, part)
	}
	return out
}
