package domain

// Ingestion result messages.
const (
	MessageDuplicate = "Document already uploaded"
	MessageUploaded  = "PDF uploaded and processed successfully."
)

// IngestRequest is a single document to index.
type IngestRequest struct {
	// Source identifies the document (usually the base filename).
	// When set, segments lacking a source inherit it.
	Source string

	// Segments are the extracted pages.
	Segments []Segment

	// Domain is the subject domain, may be empty.
	Domain string

	// Bibliography holds bibliographic fields applied to every chunk.
	Bibliography map[string]string
}

// IngestResult reports the outcome of one ingestion.
type IngestResult struct {
	Source        string      `json:"source"`
	IsDuplicate   bool        `json:"is_duplicate"`
	Message       string      `json:"message"`
	Index         IndexResult `json:"index"`
	ChunksTotal   int         `json:"chunks_total"`
	ChunksWritten int         `json:"chunks_written"`
}

// BulkItem pairs a document with its bibliography for bulk ingestion.
type BulkItem struct {
	// Path is the PDF file path.
	Path string

	// BibPath is the matching .bib file, empty when none exists.
	BibPath string

	// Domain is derived from the first directory below the root.
	Domain string
}

// BulkResult is the outcome of one item in a bulk ingestion.
type BulkResult struct {
	Item   BulkItem
	Result *IngestResult
	Err    error
}

// BulkSummary counts outcomes of a bulk ingestion.
type BulkSummary struct {
	Uploaded   int `json:"uploaded"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// SummariseBulk counts uploaded, duplicate and failed documents.
func SummariseBulk(results []BulkResult) BulkSummary {
	var sum BulkSummary
	for _, r := range results {
		switch {
		case r.Err != nil:
			sum.Failed++
		case r.Result != nil && r.Result.IsDuplicate:
			sum.Duplicates++
		default:
			sum.Uploaded++
		}
	}
	return sum
}
