package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReleaseJobStatus string

const (
	ReleasePending ReleaseJobStatus = "PENDING"
	ReleaseDone    ReleaseJobStatus = "DONE"
	ReleaseSkipped ReleaseJobStatus = "SKIPPED"
)

// ReleaseJob is a deferred "table -> AVAILABLE" change created by a payment.
// TableVersion is the table version observed at payment time.
type ReleaseJob struct {
	ID           string           `json:"id" gorm:"primaryKey;size:36"`
	TableID      uint             `json:"table_id" gorm:"not null;index"`
	InvoiceID    uint             `json:"invoice_id" gorm:"not null"`
	TableVersion int              `json:"table_version" gorm:"not null"`
	DueAt        time.Time        `json:"due_at" gorm:"not null;index"`
	Status       ReleaseJobStatus `json:"status" gorm:"type:varchar(10);not null;index"`
	Reason       string           `json:"reason" gorm:"size:100"`
	CreatedAt    time.Time        `json:"created_at"`
	FinishedAt   *time.Time       `json:"finished_at"`
}

func (job *ReleaseJob) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return
}
