package player

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/fingerprint"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const columns = "id, tenant_id, player_id, first_name, last_name, postcode, dob, mobile, email, casino, network_id, fingerprint, created_at, updated_at, deleted_at"

// Repository handles register player persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new player repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create adds a single player to the register
func (r *Repository) Create(ctx context.Context, tenantID string, record models.PlayerRecord) (*models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	player := &models.Player{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		PlayerID:    record.PlayerID,
		FirstName:   record.FirstName,
		LastName:    record.LastName,
		Postcode:    record.Postcode,
		DOB:         record.DOB,
		Mobile:      record.Mobile,
		Email:       record.Email,
		Casino:      record.Casino,
		NetworkID:   record.NetworkID,
		Fingerprint: fingerprint.Record(record),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("players")
	sb.Cols("id", "tenant_id", "player_id", "first_name", "last_name", "postcode", "dob", "mobile", "email", "casino", "network_id", "fingerprint", "created_at", "updated_at")
	sb.Values(player.ID, player.TenantID, player.PlayerID, player.FirstName, player.LastName, player.Postcode, player.DOB, player.Mobile, player.Email, player.Casino, player.NetworkID, player.Fingerprint, player.CreatedAt, player.UpdatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, fingerprint) DO NOTHING"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"player_id": record.PlayerID}).Error("Failed to create player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create player")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("player %s already exists in the register", record.PlayerID))
	}

	return player, nil
}

// CreateBatch appends records to the register, skipping rows whose
// fingerprint is already present so re-committing a batch is safe.
// Returns the number of rows actually inserted.
func (r *Repository) CreateBatch(ctx context.Context, tenantID string, records []models.PlayerRecord) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.CreateBatch")
	defer span.End()

	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("players")
	sb.Cols("id", "tenant_id", "player_id", "first_name", "last_name", "postcode", "dob", "mobile", "email", "casino", "network_id", "fingerprint", "created_at", "updated_at")

	for _, rec := range records {
		sb.Values(uuid.New().String(), tenantID, rec.PlayerID, rec.FirstName, rec.LastName, rec.Postcode, rec.DOB, rec.Mobile, rec.Email, rec.Casino, rec.NetworkID, fingerprint.Record(rec), now, now)
	}

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, fingerprint) DO NOTHING"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create players batch")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create players")
	}

	inserted, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(records), "inserted": inserted}).Debug("Created players batch")
	return int(inserted), nil
}

// Get retrieves a register player by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Player, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("players")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var player models.Player
	if err := r.db.GetContext(ctx, &player, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("player %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get player")
	}

	return &player, nil
}

// List retrieves register players, newest first
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Player, int, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From("players")
	countSB.Where(
		countSB.Equal("tenant_id", tenantID),
		countSB.IsNull("deleted_at"),
	)

	query, args := countSB.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count players")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list players")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("players")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC", "id")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var players []models.Player
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list players")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list players")
	}

	return players, total, nil
}

// Snapshot loads the whole register for a tenant as plain records for
// screening. Order is stable so screening reports are reproducible.
func (r *Repository) Snapshot(ctx context.Context, tenantID string) ([]models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Snapshot")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("players")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var players []models.Player
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load register snapshot")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load register")
	}

	records := make([]models.PlayerRecord, 0, len(players))
	for i := range players {
		records = append(records, players[i].Record())
	}

	return records, nil
}

// Delete soft-deletes a register player
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("players")
	sb.Set(
		sb.Assign("deleted_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete player")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete player")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("player %s not found", id))
	}

	return nil
}
