package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driving"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure MaintenanceService implements the interface.
var _ driving.MaintenanceService = (*MaintenanceService)(nil)

// MaintenanceService cleans and enriches the stored corpus.
type MaintenanceService struct {
	corpus           *Corpus
	normaliser       driven.RecordNormaliser
	classifier       driven.Classifier
	embeddingService driven.EmbeddingService
	newID            func() string
}

// NewMaintenanceService creates a maintenance service.
// The classifier and embeddingService parameters are optional (can be nil).
func NewMaintenanceService(
	corpus *Corpus,
	normaliser driven.RecordNormaliser,
	classifier driven.Classifier,
	embeddingService driven.EmbeddingService,
) *MaintenanceService {
	return &MaintenanceService{
		corpus:           corpus,
		normaliser:       normaliser,
		classifier:       classifier,
		embeddingService: embeddingService,
	}
}

// SetIDGenerator sets the function used to identify records that lack an ID.
func (s *MaintenanceService) SetIDGenerator(gen func() string) {
	s.newID = gen
}

// Sanitize drops garbage, short and duplicate QA records and, when asked,
// records the classifier rejects. Context records pass through unchanged.
// The input slice is not modified.
func (s *MaintenanceService) Sanitize(
	ctx context.Context, records []domain.KnowledgeRecord, opts domain.SanitizeOptions,
) (domain.SanitizeReport, error) {
	logger.Section("Sanitize")
	if len(records) == 0 {
		return domain.SanitizeReport{}, domain.ErrNothingToSanitize
	}
	opts = opts.WithDefaults()
	logger.Debug("Records: %d, min answer length: %d, classifier: %t",
		len(records), opts.MinAnswerLen, opts.UseClassifier)

	report := domain.SanitizeReport{
		Input:   len(records),
		Dropped: make(map[domain.DropReason]int),
	}

	var kept, passages []domain.KnowledgeRecord
	seen := make(map[string]struct{})
	for _, raw := range records {
		if raw.IsContext() {
			passages = append(passages, raw.Clone())
			continue
		}

		record := s.normaliser.Normalise(raw)
		switch {
		case !s.normaliser.Eligible(record):
			report.Dropped[domain.DropGarbage]++
			continue
		case utf8.RuneCountInString(strings.TrimSpace(record.Answer)) < opts.MinAnswerLen:
			report.Dropped[domain.DropTooShort]++
			continue
		}

		key := s.normaliser.Key(record.Question) + "\x00" + s.normaliser.Key(record.Answer)
		if _, dup := seen[key]; dup {
			report.Dropped[domain.DropDuplicate]++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, record)
	}

	if opts.UseClassifier {
		kept = s.classify(ctx, kept, opts.ChunkSize, &report)
	}

	report.KeptQA = len(kept)
	report.Context = len(passages)
	report.Records = make([]domain.KnowledgeRecord, 0, len(kept)+len(passages))
	report.Records = append(report.Records, kept...)
	report.Records = append(report.Records, passages...)

	logger.Info("Sanitize kept %d QA and %d context records, dropped %d",
		report.KeptQA, report.Context, report.DroppedTotal())
	return report, nil
}

// classify sends borderline records to the classifier in chunks. A chunk
// whose call fails, or whose verdicts do not line up, is kept whole.
func (s *MaintenanceService) classify(
	ctx context.Context, records []domain.KnowledgeRecord, chunkSize int, report *domain.SanitizeReport,
) []domain.KnowledgeRecord {
	if s.classifier == nil {
		logger.Warn("Classifier requested but not configured, keeping all records")
		return records
	}

	var borderline []int
	for i, r := range records {
		if s.normaliser.IsBorderline(domain.QAPair{Question: r.Question, Answer: r.Answer}) {
			borderline = append(borderline, i)
		}
	}
	logger.Debug("Borderline records: %d of %d", len(borderline), len(records))

	drop := make(map[int]bool)
	for start := 0; start < len(borderline); start += chunkSize {
		end := min(start+chunkSize, len(borderline))
		chunk := borderline[start:end]

		pairs := make([]domain.QAPair, len(chunk))
		for j, idx := range chunk {
			pairs[j] = domain.QAPair{Question: records[idx].Question, Answer: records[idx].Answer}
		}

		report.ClassifierChunks++
		verdicts, err := s.classifier.Classify(ctx, pairs)
		if err != nil || len(verdicts) != len(pairs) {
			report.ClassifierFailures++
			logger.Warn("Classifier chunk %d failed, keeping %d records: %v",
				report.ClassifierChunks, len(pairs), classifierError(err, len(verdicts), len(pairs)))
			continue
		}
		for j, keep := range verdicts {
			if !keep {
				drop[chunk[j]] = true
			}
		}
	}

	if len(drop) == 0 {
		return records
	}
	out := make([]domain.KnowledgeRecord, 0, len(records)-len(drop))
	for i, r := range records {
		if drop[i] {
			report.Dropped[domain.DropClassifier]++
			continue
		}
		out = append(out, r)
	}
	return out
}

func classifierError(err error, got, want int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: got %d verdicts for %d pairs", domain.ErrClassifierUnavailable, got, want)
}

// SanitizeStore loads, sanitises and saves the corpus.
func (s *MaintenanceService) SanitizeStore(
	ctx context.Context, opts domain.SanitizeOptions,
) (domain.SanitizeReport, error) {
	records, err := s.corpus.LoadStrict(ctx)
	if err != nil {
		return domain.SanitizeReport{}, fmt.Errorf("sanitize store: %w", err)
	}

	report, err := s.Sanitize(ctx, records, opts)
	if err != nil {
		return report, err
	}
	if opts.DryRun {
		logger.Info("Dry run, not saving")
		return report, nil
	}

	saved, err := s.corpus.Save(ctx, report.Records)
	if err != nil {
		return report, fmt.Errorf("sanitize store: %w", err)
	}
	report.Persisted = saved.Persisted
	return report, nil
}

// Backfill embeds records that have no vector and assigns missing IDs.
// Failed batches leave their records untouched.
func (s *MaintenanceService) Backfill(
	ctx context.Context, opts domain.BackfillOptions,
) (domain.BackfillReport, error) {
	logger.Section("Embedding Backfill")
	var report domain.BackfillReport
	if s.embeddingService == nil {
		return report, domain.ErrEmbeddingUnavailable
	}

	records, err := s.corpus.LoadStrict(ctx)
	if err != nil {
		return report, fmt.Errorf("backfill: %w", err)
	}

	var missing []int
	for i, r := range records {
		if !r.HasEmbedding() && strings.TrimSpace(r.EmbeddingText()) != "" {
			missing = append(missing, i)
		}
	}
	report.Missing = len(missing)
	logger.Debug("Records missing embeddings: %d", report.Missing)
	if opts.DryRun {
		return report, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultBackfillBatchSize
	}
	for start := 0; start < len(missing); start += batchSize {
		if ctx.Err() != nil {
			report.Failed += len(missing) - start
			break
		}
		batch := missing[start:min(start+batchSize, len(missing))]
		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = records[idx].EmbeddingText()
		}

		vectors, err := s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil || len(vectors) != len(batch) {
			logger.Warn("Embedding batch at %d failed: %v", start, err)
			report.Failed += len(batch)
			continue
		}
		for j, idx := range batch {
			if len(vectors[j]) == 0 {
				report.Failed++
				continue
			}
			records[idx].Embedding = vectors[j]
			report.Embedded++
		}
	}

	report.AssignedIDs = s.assignIDs(records)
	if report.Embedded == 0 && report.AssignedIDs == 0 {
		return report, nil
	}

	saved, err := s.corpus.Save(ctx, records)
	if err != nil {
		return report, fmt.Errorf("backfill: %w", err)
	}
	report.Persisted = saved.Persisted
	logger.Info("Backfill embedded %d of %d records", report.Embedded, report.Missing)
	return report, nil
}

// Stats summarises the stored corpus.
func (s *MaintenanceService) Stats(ctx context.Context) (domain.CorpusStats, error) {
	records, err := s.corpus.LoadStrict(ctx)
	if err != nil {
		return domain.CorpusStats{}, fmt.Errorf("stats: %w", err)
	}

	stats := domain.CorpusStats{Total: len(records)}
	for _, raw := range records {
		if raw.HasEmbedding() {
			stats.WithEmbedding++
		}
		eligible := s.normaliser.Eligible(s.normaliser.Normalise(raw))
		if raw.IsContext() {
			stats.Context++
			if eligible {
				stats.EligibleContext++
			}
			continue
		}
		stats.QA++
		if eligible {
			stats.EligibleQA++
		}
	}
	return stats, nil
}

// Export returns the stored corpus.
func (s *MaintenanceService) Export(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	records, err := s.corpus.LoadStrict(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return records, nil
}

// Import appends records to the corpus, or replaces it when replace is set.
func (s *MaintenanceService) Import(
	ctx context.Context, records []domain.KnowledgeRecord, replace bool,
) (domain.SaveResult, error) {
	if len(records) == 0 {
		return domain.SaveResult{}, fmt.Errorf("no records to import: %w", domain.ErrInvalidInput)
	}

	incoming := domain.CloneRecords(records)
	merged := incoming
	if !replace {
		existing, err := s.corpus.LoadStrict(ctx)
		if err != nil {
			return domain.SaveResult{}, fmt.Errorf("import: %w", err)
		}
		merged = append(existing, incoming...)
	}
	s.assignIDs(merged)

	result, err := s.corpus.Save(ctx, merged)
	if err != nil {
		return result, fmt.Errorf("import: %w", err)
	}
	logger.Info("Imported %d records (replace=%t), corpus now %d", len(incoming), replace, len(merged))
	return result, nil
}

func (s *MaintenanceService) assignIDs(records []domain.KnowledgeRecord) int {
	if s.newID == nil {
		return 0
	}
	assigned := 0
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = s.newID()
			assigned++
		}
	}
	return assigned
}
