package migrate

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
)

// activeAlertIndexSQL mirrors the partial unique index shipped in the goose
// migrations; sqlite supports the same syntax.
const activeAlertIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS ux_inventory_alerts_active_part
	ON inventory_alerts (part_id)
	WHERE status IN ('OPEN', 'ACKNOWLEDGED')`

// AutoMigrate builds the schema from the gorm models. It backs embedded sqlite
// databases (local runs and tests), where the Postgres goose files do not apply.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.AutoMigrate(&models.Part{}, &models.InventoryAlert{}, &models.AuditLogEntry{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := conn.Exec(activeAlertIndexSQL).Error; err != nil {
		return fmt.Errorf("create active alert index: %w", err)
	}
	return nil
}
