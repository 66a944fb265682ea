package model

import "time"

// BackupStatus tracks a snapshot from creation to upload.
type BackupStatus string

const (
	BackupPending   BackupStatus = "pending"
	BackupUploading BackupStatus = "uploading"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
)

// Backup is one encrypted snapshot of the larder database in object
// storage. Products counts the products the snapshot holds.
type Backup struct {
	ID          int64        `json:"id"`
	Filename    string       `json:"filename"`
	ObjectKey   string       `json:"object_key"`
	SizeBytes   int64        `json:"size_bytes"`
	Products    int64        `json:"products"`
	Status      BackupStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Restorable reports whether the snapshot finished uploading.
func (b *Backup) Restorable() bool {
	return b.Status == BackupCompleted
}
