package models

import "time"

// Report statuses tracked in the archive.
const (
	ReportStatusRendered    = "RENDERED"
	ReportStatusPrinted     = "PRINTED"
	ReportStatusPrintFailed = "PRINT_FAILED"
)

// ReportRecord is the Firestore record of a rendered report.
// It tracks the overall status of the run and where the artifact was archived.
type ReportRecord struct {
	Topic          string    `firestore:"topic,omitempty"`
	FileHash       string    `firestore:"fileHash,omitempty"`
	ArtifactGCSUri string    `firestore:"artifactGcsUri,omitempty"`
	Status         string    `firestore:"status,omitempty"`
	Device         string    `firestore:"device,omitempty"`
	ErrorDetails   string    `firestore:"errorDetails,omitempty"`
	PageCount      int       `firestore:"pageCount,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt,omitempty"`
}
