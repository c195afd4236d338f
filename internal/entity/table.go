package entity

// Table is one detected tabular region within a source PDF, as returned by
// the extraction endpoint. Rows are header-keyed records; Headers preserves
// the column order the endpoint reported.
//
// Rows and Columns are the dimensions the endpoint claims for the table. The
// client does not recompute or validate them against Records.
type Table struct {
	Index      int                 `json:"index"`
	Page       int                 `json:"page"`
	Rows       int                 `json:"rows"`
	Columns    int                 `json:"columns"`
	Confidence float64             `json:"confidence"`
	Method     string              `json:"method"`
	Headers    []string            `json:"headers"`
	Records    []map[string]string `json:"data"`
}

// ExtractionResult is the parsed success response from the extraction
// endpoint. Replaced wholesale on each new upload, never merged.
type ExtractionResult struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	Tables         []Table `json:"tables"`
	TablesFound    int     `json:"tables_found"`
	Confidence     float64 `json:"confidence_score"`
	Method         string  `json:"extraction_method"`
	FileID         string  `json:"file_id"`
	ProcessingTime float64 `json:"processing_time"`
}
