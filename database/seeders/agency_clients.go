package seeders

import (
	"log"

	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/models/clientconfig"
)

// SeedAgencyClients creates a ClientConfig row for every agency in
// AGENCIES_REQUIRING_PO that does not have one yet. Existing rows are
// left untouched so admin edits survive restarts.
func SeedAgencyClients(db *gorm.DB, settings *config.Settings) {
	log.Printf("🔍 Checking agency client configuration...")

	for _, agency := range settings.Agencies() {
		var existing clientconfig.ClientConfig
		err := db.Where("agency_name = ?", agency).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Printf("❌ Failed to look up client config for %s: %v", agency, err)
			continue
		}

		client := clientconfig.ClientConfig{
			AgencyName:      agency,
			RequiresPO:      true,
			Active:          true,
			ReminderDays:    settings.DaysForReminder,
			FinalNoticeDays: settings.DaysForFinalNotice,
		}
		if err := db.Create(&client).Error; err != nil {
			log.Printf("❌ Failed to seed client config for %s: %v", agency, err)
			continue
		}
		log.Printf("✅ Seeded client config for agency %s", agency)
	}
}
