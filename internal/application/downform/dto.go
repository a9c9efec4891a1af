package downformapp

// ProcessResult reports the outcome of one ingestion run to the caller.
// Skipped counts rows that failed the per-row insert fallback; they are
// neither inserted nor updated.
type ProcessResult struct {
	BatchID   int64 `json:"batch_id"`
	TotalRows int   `json:"total_rows"`
	Inserted  int   `json:"inserted_count"`
	Updated   int   `json:"updated_count"`
	Skipped   int   `json:"skipped_rows"`
}
