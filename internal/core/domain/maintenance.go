package domain

// Maintenance defaults.
const (
	// DefaultMinAnswerLen is the minimum answer length kept by sanitisation.
	DefaultMinAnswerLen = 8

	// DefaultClassifierChunkSize is the number of pairs sent per classifier call.
	DefaultClassifierChunkSize = 25

	// DefaultBackfillBatchSize is the number of texts embedded per request.
	DefaultBackfillBatchSize = 32
)

// SanitizeOptions configures a maintenance pass.
type SanitizeOptions struct {
	// MinAnswerLen drops QA records whose trimmed answer is shorter.
	MinAnswerLen int

	// UseClassifier sends borderline records to the quality classifier.
	UseClassifier bool

	// ChunkSize is the number of pairs per classifier call.
	ChunkSize int

	// DryRun computes the report without saving.
	DryRun bool
}

// DefaultSanitizeOptions returns the standard maintenance options.
func DefaultSanitizeOptions() SanitizeOptions {
	return SanitizeOptions{
		MinAnswerLen: DefaultMinAnswerLen,
		ChunkSize:    DefaultClassifierChunkSize,
	}
}

// WithDefaults fills unset numeric options.
func (o SanitizeOptions) WithDefaults() SanitizeOptions {
	if o.MinAnswerLen <= 0 {
		o.MinAnswerLen = DefaultMinAnswerLen
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultClassifierChunkSize
	}
	return o
}

// DropReason says why maintenance removed a record.
type DropReason string

// Drop reasons.
const (
	DropGarbage    DropReason = "garbage"
	DropTooShort   DropReason = "too_short"
	DropDuplicate  DropReason = "duplicate"
	DropClassifier DropReason = "classifier"
)

// SanitizeReport describes the outcome of a maintenance pass.
type SanitizeReport struct {
	// Records is the cleaned corpus: surviving QA records followed by
	// every context record, each group in original order.
	Records []KnowledgeRecord

	// Input is the number of records examined.
	Input int

	// KeptQA is the number of QA records that survived.
	KeptQA int

	// Context is the number of context records passed through.
	Context int

	// Dropped counts removed QA records by reason.
	Dropped map[DropReason]int

	// ClassifierChunks is the number of classifier calls made.
	ClassifierChunks int

	// ClassifierFailures counts chunks kept because the classifier failed.
	ClassifierFailures int

	// Persisted is true when the cleaned corpus was written back.
	Persisted bool
}

// DroppedTotal is the total number of records removed.
func (r SanitizeReport) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// BackfillOptions configures an embedding backfill.
type BackfillOptions struct {
	// BatchSize is the number of texts per embedding request.
	BatchSize int

	// DryRun counts missing embeddings without computing them.
	DryRun bool
}

// BackfillReport describes the outcome of an embedding backfill.
type BackfillReport struct {
	// Missing is the number of records without an embedding.
	Missing int

	// Embedded is the number of records that received one.
	Embedded int

	// Failed is the number of records whose batch failed.
	Failed int

	// AssignedIDs is the number of records given a new identifier.
	AssignedIDs int

	// Persisted is true when the updated corpus was written back.
	Persisted bool
}
