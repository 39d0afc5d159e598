package repository

import (
	"time"

	"github.com/yantech/notify-dispatcher/internal/domain"
)

// ApplicationModel is the persistence model for the applications table.
type ApplicationModel struct {
	ApplicationID       string                   `gorm:"column:application_id;type:varchar(128);primaryKey"`
	EmailSenderIdentity string                   `gorm:"type:varchar(512);not null;default:''"`
	NotificationTopic   string                   `gorm:"type:varchar(512);not null;default:''"`
	Status              domain.ApplicationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ApplicationModel) TableName() string {
	return "applications"
}

// DeliveryLogModel is the persistence model for delivery_logs. Rows are
// insert-only.
type DeliveryLogModel struct {
	ID            string                `gorm:"type:uuid;primaryKey"`
	ApplicationID string                `gorm:"column:application_id;type:varchar(128);not null"`
	Timestamp     time.Time             `gorm:"type:timestamptz;not null"`
	Status        domain.DeliveryStatus `gorm:"type:varchar(20);not null"`
	Payload       string                `gorm:"type:text;not null"`
	Error         *string               `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DeliveryLogModel) TableName() string {
	return "delivery_logs"
}

func applicationModelToDomain(m *ApplicationModel) *domain.ApplicationConfig {
	if m == nil {
		return nil
	}

	return &domain.ApplicationConfig{
		ApplicationID:       m.ApplicationID,
		EmailSenderIdentity: m.EmailSenderIdentity,
		NotificationTopic:   m.NotificationTopic,
		Status:              domain.ParseApplicationStatus(string(m.Status)),
	}
}

func deliveryLogModelFromDomain(id string, r domain.DeliveryRecord) *DeliveryLogModel {
	model := &DeliveryLogModel{
		ID:            id,
		ApplicationID: r.ApplicationID,
		Timestamp:     r.Timestamp.UTC(),
		Status:        r.Status,
		Payload:       r.Payload,
	}
	if r.Error != "" {
		errText := r.Error
		model.Error = &errText
	}
	return model
}
