package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
)

type fakePlayerStore struct {
	register []models.PlayerRecord
	appended []models.PlayerRecord
}

func (f *fakePlayerStore) Snapshot(ctx context.Context, tenantID string) ([]models.PlayerRecord, error) {
	return f.register, nil
}

func (f *fakePlayerStore) CreateBatch(ctx context.Context, tenantID string, records []models.PlayerRecord) (int, error) {
	f.appended = append(f.appended, records...)
	return len(records), nil
}

type fakeTx struct {
	database.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) IsOpen() bool { return !t.committed && !t.rolledBack }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeScreeningStore struct {
	runs       map[string]*models.ScreeningRun
	records    map[string][]models.PlayerRecord
	matches    []*models.ScreeningMatch
	nextID     int
	tx         *fakeTx
	matchesErr error
}

func newFakeScreeningStore() *fakeScreeningStore {
	return &fakeScreeningStore{
		runs:    make(map[string]*models.ScreeningRun),
		records: make(map[string][]models.PlayerRecord),
	}
}

func (f *fakeScreeningStore) BeginTx(ctx context.Context) (context.Context, database.Tx, error) {
	f.tx = &fakeTx{}
	return ctx, f.tx, nil
}

func (f *fakeScreeningStore) CreateRun(ctx context.Context, tenantID, sourceName string, recordCount int, rejected []models.RejectedRecord) (*models.ScreeningRun, error) {
	f.nextID++
	run := &models.ScreeningRun{
		ID:            string(rune('a' + f.nextID)),
		TenantID:      tenantID,
		SourceName:    sourceName,
		Status:        models.ScreeningRunStatusPending,
		RecordCount:   recordCount,
		RejectedCount: len(rejected),
		Rejected:      rejected,
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeScreeningStore) GetRun(ctx context.Context, tenantID, id string) (*models.ScreeningRun, error) {
	run := *f.runs[id]
	return &run, nil
}

func (f *fakeScreeningStore) ListRuns(ctx context.Context, tenantID string, page, pageSize int) ([]models.ScreeningRun, int, error) {
	return nil, 0, nil
}

func (f *fakeScreeningStore) CompleteRun(ctx context.Context, tenantID, id string, matchCount int) error {
	f.runs[id].Status = models.ScreeningRunStatusCompleted
	f.runs[id].MatchCount = matchCount
	return nil
}

func (f *fakeScreeningStore) CommitRun(ctx context.Context, tenantID, id string, committedCount int) error {
	f.runs[id].Status = models.ScreeningRunStatusCommitted
	f.runs[id].CommittedCount = committedCount
	return nil
}

func (f *fakeScreeningStore) SaveRecords(ctx context.Context, tenantID, runID string, records []models.PlayerRecord) error {
	f.records[runID] = records
	return nil
}

func (f *fakeScreeningStore) GetRecords(ctx context.Context, tenantID, runID string) ([]models.PlayerRecord, error) {
	return f.records[runID], nil
}

func (f *fakeScreeningStore) CreateMatches(ctx context.Context, matches []*models.ScreeningMatch) error {
	if f.matchesErr != nil {
		return f.matchesErr
	}
	for i, m := range matches {
		m.ID = string(rune('A' + len(f.matches) + i))
		m.Position = i
		m.Status = models.ScreeningMatchStatusPending
	}
	f.matches = append(f.matches, matches...)
	return nil
}

func (f *fakeScreeningStore) ListMatches(ctx context.Context, tenantID, runID string, page, pageSize int) ([]models.ScreeningMatch, int, error) {
	var out []models.ScreeningMatch
	for _, m := range f.matches {
		if m.ScreeningRunID == runID {
			out = append(out, *m)
		}
	}
	return out, len(out), nil
}

func (f *fakeScreeningStore) GetMatch(ctx context.Context, tenantID, id string) (*models.ScreeningMatch, error) {
	for _, m := range f.matches {
		if m.ID == id {
			match := *m
			return &match, nil
		}
	}
	return nil, assert.AnError
}

func (f *fakeScreeningStore) ResolveMatch(ctx context.Context, tenantID, id, status, resolvedBy string) error {
	for _, m := range f.matches {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return assert.AnError
}

type fakeLinker struct {
	linked []string
}

func (f *fakeLinker) LinkConfirmedIdentity(ctx context.Context, match *models.ScreeningMatch, confirmedBy string) error {
	f.linked = append(f.linked, match.ID)
	return nil
}

func newTestService(register []models.PlayerRecord) (*Service, *fakePlayerStore, *fakeScreeningStore, *fakeLinker) {
	players := &fakePlayerStore{register: register}
	screenings := newFakeScreeningStore()
	linker := &fakeLinker{}
	engine := NewEngine(testLogger(), EngineConfig{})
	svc := NewService(testLogger(), engine, players, screenings, nil, linker, 0)
	return svc, players, screenings, linker
}

func TestStartScreening(t *testing.T) {
	ctx := context.Background()

	register := []models.PlayerRecord{
		record("e1", "John", "Smith", "1990-05-15", "Lucky Star"),
	}
	svc, _, screenings, _ := newTestService(register)

	incoming := []models.PlayerRecord{
		record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star"),
		record("n2", "Mary", "Brown", "1970-01-01", "Lucky Star"),
	}

	run, err := svc.StartScreening(ctx, "t1", "upload.csv", incoming, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ScreeningRunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.RecordCount)
	assert.Equal(t, 1, run.MatchCount)

	matches, total, err := svc.ListMatches(ctx, "t1", run.ID, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.MatchRuleAlteredNameExactDOB, matches[0].MatchRule)
	assert.Equal(t, "n1", matches[0].NewPlayerID)
	assert.Equal(t, "e1", matches[0].ExistingPlayerID)

	// The batch is staged but not yet in the register
	assert.Len(t, screenings.records[run.ID], 2)
	assert.True(t, screenings.tx.committed)
}

func TestStartScreeningRollsBackOnPersistFailure(t *testing.T) {
	register := []models.PlayerRecord{
		record("e1", "John", "Smith", "1990-05-15", "Lucky Star"),
	}
	svc, _, screenings, _ := newTestService(register)
	screenings.matchesErr = assert.AnError

	_, err := svc.StartScreening(context.Background(), "t1", "upload.csv",
		[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")}, nil)
	require.Error(t, err)

	require.NotNil(t, screenings.tx)
	assert.True(t, screenings.tx.rolledBack)
	assert.False(t, screenings.tx.committed)
}

func TestStartScreeningStoresRejectedRows(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(nil)

	rejected := []models.RejectedRecord{
		{Line: 3, Reason: "missing player id", Record: record("", "Amy", "Pond", "1989-04-23", "Lucky Star")},
	}
	run, err := svc.StartScreening(ctx, "t1", "upload.csv",
		[]models.PlayerRecord{record("n1", "John", "Smith", "1990-05-15", "Lucky Star")}, rejected)
	require.NoError(t, err)
	assert.Equal(t, 1, run.RejectedCount)

	stored, err := svc.GetRun(ctx, "t1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, rejected, stored.Rejected)
}

func TestStartScreeningEmptyBatch(t *testing.T) {
	svc, _, _, _ := newTestService(nil)

	_, err := svc.StartScreening(context.Background(), "t1", "empty.csv", nil, nil)
	assert.Error(t, err)
}

func TestStartScreeningBatchTooLarge(t *testing.T) {
	players := &fakePlayerStore{}
	screenings := newFakeScreeningStore()
	engine := NewEngine(testLogger(), EngineConfig{})
	svc := NewService(testLogger(), engine, players, screenings, nil, nil, 1)

	incoming := []models.PlayerRecord{
		record("n1", "A", "B", "1990-01-01", "X"),
		record("n2", "C", "D", "1990-01-01", "X"),
	}

	_, err := svc.StartScreening(context.Background(), "t1", "big.csv", incoming, nil)
	assert.Error(t, err)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	svc, players, _, _ := newTestService(nil)

	incoming := []models.PlayerRecord{
		record("n1", "John", "Smith", "1990-05-15", "Lucky Star"),
	}

	run, err := svc.StartScreening(ctx, "t1", "upload.csv", incoming, nil)
	require.NoError(t, err)

	resp, err := svc.Commit(ctx, "t1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Committed)
	assert.Equal(t, 0, resp.Skipped)
	assert.Equal(t, models.ScreeningRunStatusCommitted, resp.Run.Status)
	assert.Len(t, players.appended, 1)

	// Committing again is rejected
	_, err = svc.Commit(ctx, "t1", run.ID)
	assert.Error(t, err)
}

func TestConfirmMatchLinksIdentity(t *testing.T) {
	ctx := context.Background()

	register := []models.PlayerRecord{
		record("e1", "John", "Smith", "1990-05-15", "Lucky Star"),
	}
	svc, _, screenings, linker := newTestService(register)

	run, err := svc.StartScreening(ctx, "t1", "upload.csv",
		[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")}, nil)
	require.NoError(t, err)

	matches, _, err := svc.ListMatches(ctx, "t1", run.ID, 1, 100)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match, err := svc.ConfirmMatch(ctx, "t1", matches[0].ID, "analyst@casino")
	require.NoError(t, err)
	assert.Equal(t, models.ScreeningMatchStatusConfirmed, match.Status)
	assert.Equal(t, []string{matches[0].ID}, linker.linked)
	assert.Equal(t, models.ScreeningMatchStatusConfirmed, screenings.matches[0].Status)
}

func TestDismissMatchDoesNotLink(t *testing.T) {
	ctx := context.Background()

	register := []models.PlayerRecord{
		record("e1", "John", "Smith", "1990-05-15", "Lucky Star"),
	}
	svc, _, _, linker := newTestService(register)

	run, err := svc.StartScreening(ctx, "t1", "upload.csv",
		[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")}, nil)
	require.NoError(t, err)

	matches, _, err := svc.ListMatches(ctx, "t1", run.ID, 1, 100)
	require.NoError(t, err)

	match, err := svc.DismissMatch(ctx, "t1", matches[0].ID, "analyst@casino")
	require.NoError(t, err)
	assert.Equal(t, models.ScreeningMatchStatusDismissed, match.Status)
	assert.Empty(t, linker.linked)
}
