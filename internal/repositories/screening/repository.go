package screening

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const runColumns = "id, tenant_id, source_name, status, record_count, rejected_count, rejected, match_count, committed_count, created_at, updated_at, completed_at, committed_at"
const matchColumns = "id, tenant_id, screening_run_id, position, casino, match_rule, new_player_id, new_first_name, new_last_name, new_dob, existing_player_id, existing_first_name, existing_last_name, existing_dob, name_score, status, created_at, updated_at, resolved_at, resolved_by"

// Repository handles screening run, staged record and match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new screening repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// runRow carries the jsonb rejected column alongside the run fields.
type runRow struct {
	models.ScreeningRun
	RejectedRows database.JSONB[[]models.RejectedRecord] `db:"rejected"`
}

func (row runRow) toRun() models.ScreeningRun {
	run := row.ScreeningRun
	run.Rejected = row.RejectedRows.Data
	return run
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// exec routes writes through the transaction carried on ctx when one is open.
func (r *Repository) exec(ctx context.Context) executor {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// BeginTx opens a transaction and carries it on the returned context, so
// writes issued with that context join it until Commit or Rollback.
func (r *Repository) BeginTx(ctx context.Context) (context.Context, database.Tx, error) {
	return r.db.GetTx(ctx, nil)
}

// CreateRun creates a new screening run in pending status. The rejected rows
// are stored on the run so the full ingest outcome stays re-readable.
func (r *Repository) CreateRun(ctx context.Context, tenantID, sourceName string, recordCount int, rejected []models.RejectedRecord) (*models.ScreeningRun, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.CreateRun")
	defer span.End()

	if rejected == nil {
		rejected = []models.RejectedRecord{}
	}

	now := time.Now().UTC()
	run := &models.ScreeningRun{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		SourceName:    sourceName,
		Status:        models.ScreeningRunStatusPending,
		RecordCount:   recordCount,
		RejectedCount: len(rejected),
		Rejected:      rejected,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("screening_runs")
	sb.Cols("id", "tenant_id", "source_name", "status", "record_count", "rejected_count", "rejected", "match_count", "committed_count", "created_at", "updated_at")
	sb.Values(run.ID, run.TenantID, run.SourceName, run.Status, run.RecordCount, run.RejectedCount, database.JSONB[[]models.RejectedRecord]{Data: rejected}, 0, 0, run.CreatedAt, run.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create screening run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create screening run")
	}

	return run, nil
}

// GetRun retrieves a screening run by ID
func (r *Repository) GetRun(ctx context.Context, tenantID, id string) (*models.ScreeningRun, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.GetRun")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(runColumns)
	sb.From("screening_runs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var row runRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("screening run %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get screening run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get screening run")
	}

	run := row.toRun()
	return &run, nil
}

// ListRuns retrieves screening runs for a tenant, newest first
func (r *Repository) ListRuns(ctx context.Context, tenantID string, page, pageSize int) ([]models.ScreeningRun, int, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.ListRuns")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From("screening_runs")
	countSB.Where(countSB.Equal("tenant_id", tenantID))

	query, args := countSB.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count screening runs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list screening runs")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(runColumns)
	sb.From("screening_runs")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC", "id")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list screening runs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list screening runs")
	}

	runs := make([]models.ScreeningRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toRun())
	}

	return runs, total, nil
}

// CompleteRun marks a run completed and records its match count
func (r *Repository) CompleteRun(ctx context.Context, tenantID, id string, matchCount int) error {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.CompleteRun")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("screening_runs")
	sb.Set(
		sb.Assign("status", models.ScreeningRunStatusCompleted),
		sb.Assign("match_count", matchCount),
		sb.Assign("completed_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	return r.execRunUpdate(ctx, sb, id, "complete")
}

// CommitRun marks a completed run as committed. Only completed runs can be
// committed, and only once.
func (r *Repository) CommitRun(ctx context.Context, tenantID, id string, committedCount int) error {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.CommitRun")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("screening_runs")
	sb.Set(
		sb.Assign("status", models.ScreeningRunStatusCommitted),
		sb.Assign("committed_count", committedCount),
		sb.Assign("committed_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.ScreeningRunStatusCompleted),
	)

	query, args := sb.Build()
	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit screening run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit screening run")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("screening run %s is not in a committable state", id))
	}

	return nil
}

func (r *Repository) execRunUpdate(ctx context.Context, sb *sqlbuilder.UpdateBuilder, id, action string) error {
	query, args := sb.Build()
	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to %s screening run", action)
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update screening run")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("screening run %s not found", id))
	}

	return nil
}

// SaveRecords stages the run's accepted input records so a later commit can
// append exactly what was screened.
func (r *Repository) SaveRecords(ctx context.Context, tenantID, runID string, records []models.PlayerRecord) error {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.SaveRecords")
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("screening_records")
	sb.Cols("id", "tenant_id", "screening_run_id", "position", "player_id", "first_name", "last_name", "postcode", "dob", "mobile", "email", "casino", "network_id", "created_at")

	for i, rec := range records {
		sb.Values(uuid.New().String(), tenantID, runID, i, rec.PlayerID, rec.FirstName, rec.LastName, rec.Postcode, rec.DOB, rec.Mobile, rec.Email, rec.Casino, rec.NetworkID, now)
	}

	query, args := sb.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to save screening records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save screening records")
	}

	return nil
}

// GetRecords loads a run's staged records in input order
func (r *Repository) GetRecords(ctx context.Context, tenantID, runID string) ([]models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.GetRecords")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("player_id", "first_name", "last_name", "postcode", "dob", "mobile", "email", "casino", "network_id")
	sb.From("screening_records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("screening_run_id", runID),
	)
	sb.OrderBy("position")

	query, args := sb.Build()
	var records []models.PlayerRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load screening records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load screening records")
	}

	return records, nil
}

// CreateMatches persists a run's flagged pairs. Position is assigned from
// slice order to preserve the report ordering.
func (r *Repository) CreateMatches(ctx context.Context, matches []*models.ScreeningMatch) error {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.CreateMatches")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("screening_matches")
	sb.Cols("id", "tenant_id", "screening_run_id", "position", "casino", "match_rule", "new_player_id", "new_first_name", "new_last_name", "new_dob", "existing_player_id", "existing_first_name", "existing_last_name", "existing_dob", "name_score", "status", "created_at", "updated_at")

	for i, m := range matches {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.Position = i
		m.Status = models.ScreeningMatchStatusPending
		m.CreatedAt = now
		m.UpdatedAt = now
		sb.Values(m.ID, m.TenantID, m.ScreeningRunID, m.Position, m.Casino, m.MatchRule, m.NewPlayerID, m.NewFirstName, m.NewLastName, m.NewDOB, m.ExistingPlayerID, m.ExistingFirst, m.ExistingLast, m.ExistingDOB, m.NameScore, m.Status, m.CreatedAt, m.UpdatedAt)
	}

	query, args := sb.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create screening matches")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create screening matches")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(matches)}).Debug("Created screening matches")
	return nil
}

// ListMatches retrieves a run's matches in report order
func (r *Repository) ListMatches(ctx context.Context, tenantID, runID string, page, pageSize int) ([]models.ScreeningMatch, int, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.ListMatches")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From("screening_matches")
	countSB.Where(
		countSB.Equal("tenant_id", tenantID),
		countSB.Equal("screening_run_id", runID),
	)

	query, args := countSB.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count screening matches")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list screening matches")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns)
	sb.From("screening_matches")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("screening_run_id", runID),
	)
	sb.OrderBy("position")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var matches []models.ScreeningMatch
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list screening matches")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list screening matches")
	}

	return matches, total, nil
}

// GetMatch retrieves a single match by ID
func (r *Repository) GetMatch(ctx context.Context, tenantID, id string) (*models.ScreeningMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.GetMatch")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns)
	sb.From("screening_matches")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var match models.ScreeningMatch
	if err := r.db.GetContext(ctx, &match, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("screening match %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get screening match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get screening match")
	}

	return &match, nil
}

// ResolveMatch records an operator decision on a pending match
func (r *Repository) ResolveMatch(ctx context.Context, tenantID, id, status, resolvedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "screening.Repository.ResolveMatch")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("screening_matches")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.ScreeningMatchStatusPending),
	)

	query, args := sb.Build()
	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve screening match")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve screening match")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("screening match %s is not pending", id))
	}

	return nil
}
