package models

// Device is a named print destination registered with the operating system.
type Device struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// StructuredDocument is the composed form of a summary, ready for rendering.
// It is built once per run and not modified afterwards.
type StructuredDocument struct {
	Topic    string   `json:"topic"`
	Bullets  []string `json:"bullets"`
	FullText string   `json:"fullText"`
}

// RenderedArtifact is a paginated document written to disk by the renderer.
type RenderedArtifact struct {
	Path      string `json:"path"`
	PageCount int    `json:"pageCount"`
	Size      int64  `json:"size"`
}

// PrintJob is a single raw submission to a device. It only lives for the
// duration of one dispatch.
type PrintJob struct {
	TargetDevice string
	Name         string
	Payload      []byte
}
