package matching

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// PlayerStore is the register access the service needs.
type PlayerStore interface {
	Snapshot(ctx context.Context, tenantID string) ([]models.PlayerRecord, error)
	CreateBatch(ctx context.Context, tenantID string, records []models.PlayerRecord) (int, error)
}

// ScreeningStore persists runs, staged records and matches. BeginTx carries
// the transaction on the returned context so the write calls can share it.
type ScreeningStore interface {
	BeginTx(ctx context.Context) (context.Context, database.Tx, error)
	CreateRun(ctx context.Context, tenantID, sourceName string, recordCount int, rejected []models.RejectedRecord) (*models.ScreeningRun, error)
	GetRun(ctx context.Context, tenantID, id string) (*models.ScreeningRun, error)
	ListRuns(ctx context.Context, tenantID string, page, pageSize int) ([]models.ScreeningRun, int, error)
	CompleteRun(ctx context.Context, tenantID, id string, matchCount int) error
	CommitRun(ctx context.Context, tenantID, id string, committedCount int) error
	SaveRecords(ctx context.Context, tenantID, runID string, records []models.PlayerRecord) error
	GetRecords(ctx context.Context, tenantID, runID string) ([]models.PlayerRecord, error)
	CreateMatches(ctx context.Context, matches []*models.ScreeningMatch) error
	ListMatches(ctx context.Context, tenantID, runID string, page, pageSize int) ([]models.ScreeningMatch, int, error)
	GetMatch(ctx context.Context, tenantID, id string) (*models.ScreeningMatch, error)
	ResolveMatch(ctx context.Context, tenantID, id, status, resolvedBy string) error
}

// Emitter publishes screening lifecycle events. Optional.
type Emitter interface {
	EmitScreeningCompleted(ctx context.Context, run *models.ScreeningRun) error
	EmitMatches(ctx context.Context, matches []*models.ScreeningMatch) error
	EmitScreeningCommitted(ctx context.Context, run *models.ScreeningRun, committed int) error
	EmitMatchResolved(ctx context.Context, match *models.ScreeningMatch, status, resolvedBy string) error
}

// IdentityLinker records confirmed matches in the identity graph. Optional.
type IdentityLinker interface {
	LinkConfirmedIdentity(ctx context.Context, match *models.ScreeningMatch, confirmedBy string) error
}

// Service runs screenings end to end: stage the batch, screen it against the
// register, persist the report, and handle the operator follow-ups.
type Service struct {
	logger       ectologger.Logger
	engine       *Engine
	players      PlayerStore
	screenings   ScreeningStore
	emitter      Emitter
	linker       IdentityLinker
	maxBatchSize int
}

// NewService creates a new screening service. emitter and linker may be nil
// when Kafka or the graph database are not configured.
func NewService(
	logger ectologger.Logger,
	engine *Engine,
	players PlayerStore,
	screenings ScreeningStore,
	emitter Emitter,
	linker IdentityLinker,
	maxBatchSize int,
) *Service {
	return &Service{
		logger:       logger,
		engine:       engine,
		players:      players,
		screenings:   screenings,
		emitter:      emitter,
		linker:       linker,
		maxBatchSize: maxBatchSize,
	}
}

// StartScreening stages a validated batch, screens it against the register
// and persists the ordered report in one transaction, so a failure part way
// through leaves no partial run behind. Rejected rows are stored on the run
// but never screened.
func (s *Service) StartScreening(ctx context.Context, tenantID, sourceName string, records []models.PlayerRecord, rejected []models.RejectedRecord) (*models.ScreeningRun, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.StartScreening")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    tenantID,
		"source_name":  sourceName,
		"record_count": len(records),
	})

	if len(records) == 0 && len(rejected) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "batch contains no records")
	}
	if s.maxBatchSize > 0 && len(records) > s.maxBatchSize {
		return nil, httperror.NewHTTPError(http.StatusRequestEntityTooLarge, "batch exceeds maximum record count")
	}

	ctxTx, tx, err := s.screenings.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	// Rollback against the parent context so an error before Commit undoes
	// every write. After Commit it is a no-op.
	defer tx.Rollback(ctx)

	run, err := s.screenings.CreateRun(ctxTx, tenantID, sourceName, len(records), rejected)
	if err != nil {
		return nil, err
	}

	if err := s.screenings.SaveRecords(ctxTx, tenantID, run.ID, records); err != nil {
		return nil, err
	}

	register, err := s.players.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := s.engine.Screen(ctx, records, register)

	matches := make([]*models.ScreeningMatch, 0, report.Count())
	for _, pair := range report.Pairs {
		matches = append(matches, &models.ScreeningMatch{
			TenantID:         tenantID,
			ScreeningRunID:   run.ID,
			Casino:           pair.Casino,
			MatchRule:        pair.MatchRule,
			NewPlayerID:      pair.Incoming.PlayerID,
			NewFirstName:     pair.Incoming.FirstName,
			NewLastName:      pair.Incoming.LastName,
			NewDOB:           pair.Incoming.DOB,
			ExistingPlayerID: pair.Existing.PlayerID,
			ExistingFirst:    pair.Existing.FirstName,
			ExistingLast:     pair.Existing.LastName,
			ExistingDOB:      pair.Existing.DOB,
			NameScore:        pair.NameScore,
		})
	}

	if err := s.screenings.CreateMatches(ctxTx, matches); err != nil {
		return nil, err
	}

	if err := s.screenings.CompleteRun(ctxTx, tenantID, run.ID, len(matches)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}
	run.Status = models.ScreeningRunStatusCompleted
	run.MatchCount = len(matches)

	// Events are best-effort; the run is already persisted.
	if s.emitter != nil {
		if err := s.emitter.EmitMatches(ctx, matches); err != nil {
			log.WithError(err).Warn("Failed to emit match events")
		}
		if err := s.emitter.EmitScreeningCompleted(ctx, run); err != nil {
			log.WithError(err).Warn("Failed to emit screening completed event")
		}
	}

	log.WithFields(map[string]any{"run_id": run.ID, "match_count": len(matches)}).Info("Screening run completed")
	return run, nil
}

// GetRun returns a screening run
func (s *Service) GetRun(ctx context.Context, tenantID, runID string) (*models.ScreeningRun, error) {
	return s.screenings.GetRun(ctx, tenantID, runID)
}

// ListRuns returns a tenant's screening runs
func (s *Service) ListRuns(ctx context.Context, tenantID string, page, pageSize int) ([]models.ScreeningRun, int, error) {
	return s.screenings.ListRuns(ctx, tenantID, page, pageSize)
}

// ListMatches returns a run's flagged pairs in report order
func (s *Service) ListMatches(ctx context.Context, tenantID, runID string, page, pageSize int) ([]models.ScreeningMatch, int, error) {
	if _, err := s.screenings.GetRun(ctx, tenantID, runID); err != nil {
		return nil, 0, err
	}
	return s.screenings.ListMatches(ctx, tenantID, runID, page, pageSize)
}

// Commit appends a completed run's records to the register. Rows the register
// already holds are skipped by fingerprint, so committing twice is safe.
func (s *Service) Commit(ctx context.Context, tenantID, runID string) (*models.CommitScreeningResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.Commit")
	defer span.End()

	run, err := s.screenings.GetRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != models.ScreeningRunStatusCompleted {
		return nil, httperror.NewHTTPError(http.StatusConflict, "screening run is not in a committable state")
	}

	records, err := s.screenings.GetRecords(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}

	committed, err := s.players.CreateBatch(ctx, tenantID, records)
	if err != nil {
		return nil, err
	}

	if err := s.screenings.CommitRun(ctx, tenantID, runID, committed); err != nil {
		return nil, err
	}
	run.Status = models.ScreeningRunStatusCommitted
	run.CommittedCount = committed

	if s.emitter != nil {
		if err := s.emitter.EmitScreeningCommitted(ctx, run, committed); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit screening committed event")
		}
	}

	return &models.CommitScreeningResponse{
		Run:       *run,
		Committed: committed,
		Skipped:   len(records) - committed,
	}, nil
}

// ConfirmMatch records an operator confirmation. Confirmed matches are also
// linked in the identity graph when one is configured.
func (s *Service) ConfirmMatch(ctx context.Context, tenantID, matchID, resolvedBy string) (*models.ScreeningMatch, error) {
	return s.resolveMatch(ctx, tenantID, matchID, models.ScreeningMatchStatusConfirmed, resolvedBy)
}

// DismissMatch records an operator dismissal
func (s *Service) DismissMatch(ctx context.Context, tenantID, matchID, resolvedBy string) (*models.ScreeningMatch, error) {
	return s.resolveMatch(ctx, tenantID, matchID, models.ScreeningMatchStatusDismissed, resolvedBy)
}

func (s *Service) resolveMatch(ctx context.Context, tenantID, matchID, status, resolvedBy string) (*models.ScreeningMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.resolveMatch")
	defer span.End()

	match, err := s.screenings.GetMatch(ctx, tenantID, matchID)
	if err != nil {
		return nil, err
	}

	if err := s.screenings.ResolveMatch(ctx, tenantID, matchID, status, resolvedBy); err != nil {
		return nil, err
	}
	match.Status = status
	match.ResolvedBy = &resolvedBy

	if status == models.ScreeningMatchStatusConfirmed && s.linker != nil {
		if err := s.linker.LinkConfirmedIdentity(ctx, match, resolvedBy); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"match_id": matchID,
			}).Warn("Failed to link confirmed identity in graph")
		}
	}

	if s.emitter != nil {
		if err := s.emitter.EmitMatchResolved(ctx, match, status, resolvedBy); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit match resolved event")
		}
	}

	return match, nil
}
