package entity

// UploadCandidate is a user-selected file pending validation. It is discarded
// once rejected or handed to the extraction client, never retained.
type UploadCandidate struct {
	Filename  string
	MediaType string // declared MIME type, as reported by the client
	Size      int64
	Content   []byte
}

// ExtractionRequest is the validated payload sent to the extraction endpoint.
// Seq is a monotonically increasing number assigned by the workflow
// controller; results whose sequence is no longer current are discarded.
type ExtractionRequest struct {
	Filename  string
	MediaType string
	Content   []byte
	Seq       uint64
}
