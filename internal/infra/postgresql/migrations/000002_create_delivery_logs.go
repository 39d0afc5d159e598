package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/yantech/notify-dispatcher/internal/repository"
	"gorm.io/gorm"
)

func createDeliveryLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_delivery_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryLogModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_delivery_logs_application_timestamp ON delivery_logs (application_id, timestamp DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_delivery_logs_failed ON delivery_logs (timestamp) WHERE status = 'Failed'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryLogModel{})
		},
	}
}
