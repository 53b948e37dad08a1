package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldScanID is the standardized structured logging key for scan request identifiers.
	FieldScanID = "scan_id"
	// FieldBottleID is the standardized structured logging key for detected bottle identifiers.
	FieldBottleID = "bottle_id"
	// FieldStage is the standardized structured logging key for cascade stage names.
	FieldStage = "stage"
	// FieldSource is the standardized structured logging key for ingestion source names.
	FieldSource = "source"
	// FieldEventType categorizes log events for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next diagnostic step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)
