package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/claims-pipeline/internal/core/domain"
	"github.com/kirillkom/claims-pipeline/internal/core/ports"
)

const (
	defaultMaxInFlight = 4
	defaultDocTimeout  = 60 * time.Second
)

type ProcessClaimUsecase struct {
	textExtractor ports.TextExtractionGateway
	classifier    *ClassificationStage
	extractor     *ExtractionStage
	validator     *ConsistencyValidator
	decider       *DecisionEngine
	logger        *slog.Logger

	maxInFlight int64
	docTimeout  time.Duration
}

func NewProcessClaimUsecase(
	textExtractor ports.TextExtractionGateway,
	classifier *ClassificationStage,
	extractor *ExtractionStage,
	validator *ConsistencyValidator,
	decider *DecisionEngine,
	logger *slog.Logger,
	maxInFlight int,
	docTimeout time.Duration,
) *ProcessClaimUsecase {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	if docTimeout <= 0 {
		docTimeout = defaultDocTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessClaimUsecase{
		textExtractor: textExtractor,
		classifier:    classifier,
		extractor:     extractor,
		validator:     validator,
		decider:       decider,
		logger:        logger,
		maxInFlight:   int64(maxInFlight),
		docTimeout:    docTimeout,
	}
}

// ProcessClaim runs the whole pipeline for one claim. Documents are
// processed concurrently under a shared admission gate; a failing document
// degrades its own record and never cancels its siblings. Only cancellation
// or a gateway outage across every document aborts the run.
func (uc *ProcessClaimUsecase) ProcessClaim(ctx context.Context, docs []domain.RawDocument) (*domain.ClaimReport, error) {
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process claim", errors.New("no documents supplied"))
	}

	claimID := uuid.NewString()
	start := time.Now()
	log := uc.logger.With("claim_id", claimID)
	log.Info("pipeline.run.start", "documents", len(docs))

	records := make([]domain.ExtractedRecord, len(docs))
	taskErrs := make([]error, len(docs))

	gate := semaphore.NewWeighted(uc.maxInFlight)
	group, runCtx := errgroup.WithContext(ctx)
	for i := range docs {
		i := i
		group.Go(func() error {
			if err := gate.Acquire(runCtx, 1); err != nil {
				return err
			}
			defer gate.Release(1)

			record, err := uc.processDocument(runCtx, log, docs[i])
			if cancelErr := runCtx.Err(); cancelErr != nil {
				return cancelErr
			}
			records[i] = record
			taskErrs[i] = err
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		log.Warn("pipeline.run.aborted", "error", err)
		return nil, domain.WrapError(domain.ErrPipelineFailed, "process claim", err)
	}

	if err := uc.allGatewaysDown(taskErrs); err != nil {
		log.Error("pipeline.run.gateway_outage", "documents", len(docs))
		return nil, domain.WrapError(domain.ErrPipelineFailed, "process claim", err)
	}

	validation := uc.validator.Validate(records)
	decision := uc.decider.Decide(validation, records)

	report := &domain.ClaimReport{
		ClaimID:        claimID,
		Records:        records,
		Validation:     validation,
		Decision:       decision,
		ElapsedSeconds: time.Since(start).Seconds(),
	}
	log.Info("pipeline.run.done",
		"status", decision.Status,
		"confidence", decision.Confidence,
		"missing_types", len(validation.MissingTypes),
		"discrepancies", len(validation.Discrepancies),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// processDocument runs text extraction, classification and field extraction
// for one document under its own timeout. Failures come back as a degraded
// record plus the causing error; the caller stores both.
func (uc *ProcessClaimUsecase) processDocument(ctx context.Context, log *slog.Logger, doc domain.RawDocument) (domain.ExtractedRecord, error) {
	docCtx, cancel := context.WithTimeout(ctx, uc.docTimeout)
	defer cancel()

	text, err := uc.textExtractor.ExtractText(docCtx, doc)
	if err != nil {
		wrapped := domain.WrapError(domain.ErrExtractionFailed, "extract text", err)
		log.Warn("pipeline.document.unreadable", "filename", doc.Filename, "error", wrapped)
		return domain.NewDegradedRecord(doc.Filename, domain.DocTypeUnknown, domain.ExtractedText{Language: domain.LangUnknown}, wrapped.Error()), wrapped
	}

	classified, err := uc.classifier.Classify(docCtx, doc.Filename, text)
	if err != nil {
		log.Warn("pipeline.document.classification_failed", "filename", doc.Filename, "error", err)
		return domain.NewDegradedRecord(doc.Filename, domain.DocTypeUnknown, text, err.Error()), err
	}

	record, err := uc.extractor.Extract(docCtx, classified)
	if err != nil {
		log.Warn("pipeline.document.extraction_failed",
			"filename", doc.Filename,
			"doc_type", classified.Type,
			"error", err,
		)
		return record, err
	}

	log.Info("pipeline.document.done",
		"filename", doc.Filename,
		"doc_type", record.Type,
		"confidence", record.Confidence,
		"language", record.Language,
		"scanned", record.IsScanned,
	)
	return record, nil
}

// allGatewaysDown reports an error only when every document failed with the
// unreachable-gateway class. Mixed failures still produce a report.
func (uc *ProcessClaimUsecase) allGatewaysDown(taskErrs []error) error {
	down := 0
	for _, err := range taskErrs {
		if err != nil && domain.IsKind(err, domain.ErrGatewayUnavailable) {
			down++
		}
	}
	if down == len(taskErrs) && down > 0 {
		return fmt.Errorf("gateway unreachable for all %d documents: %w", down, domain.ErrGatewayUnavailable)
	}
	return nil
}
