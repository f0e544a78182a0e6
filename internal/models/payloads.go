package models

// These structs define the JSON payloads accepted and returned by the
// report-printer function.

// PrintReportRequest is the input for the report-printer function.
type PrintReportRequest struct {
	Topic   string `json:"topic" validate:"required,max=200"`
	Printer string `json:"printer,omitempty" validate:"max=256"`
}

// PrintReportResponse is the output of the report-printer function.
type PrintReportResponse struct {
	RunID        string   `json:"runId"`
	Status       string   `json:"status"`
	Devices      []Device `json:"devices"`
	Summary      string   `json:"summary,omitempty"`
	ArtifactPath string   `json:"artifactPath,omitempty"`
	PageCount    int      `json:"pageCount,omitempty"`
	Device       string   `json:"device,omitempty"`
	FellBack     bool     `json:"fellBack,omitempty"`
	PrintError   string   `json:"printError,omitempty"`
	ReportID     string   `json:"reportId,omitempty"`
}

// Response statuses.
const (
	StatusPrinted     = "printed"
	StatusPrintFailed = "print_failed"
	StatusNoDevices   = "no_devices"
)
