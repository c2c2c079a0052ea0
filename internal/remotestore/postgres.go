package remotestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "github.com/HighTechnologyAI/ironbrain-sub001/contracts/mq"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/outbox"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/metrics"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
)

const objectiveColumns = `id, title, description, target_date, location, budget_planned,
	strategic_importance, status, tags, currency, updated_at`

// PostgresStore is the pgx-backed Store. Every write also inserts a
// change-feed event into the outbox inside the same transaction.
type PostgresStore struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

// InitSchema creates the tables if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS objectives (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		target_date TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		budget_planned DOUBLE PRECISION NOT NULL DEFAULT 0,
		strategic_importance TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		tags TEXT[] NOT NULL DEFAULT '{}',
		currency TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS key_results (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		objective_id UUID NOT NULL REFERENCES objectives(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		progress INT NOT NULL DEFAULT 0,
		target_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		owner_id UUID NOT NULL,
		status TEXT NOT NULL DEFAULT 'on_track'
	);
	CREATE TABLE IF NOT EXISTS outbox_events (
		id BIGSERIAL PRIMARY KEY,
		routing_key TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchActiveObjective(ctx context.Context, ref model.ObjectiveRef) (*model.Objective, error) {
	const op = "fetch_active_objective"
	start := time.Now()

	var (
		query string
		arg   any
	)
	if ref.HasID() {
		query = fmt.Sprintf(`
			SELECT %s FROM objectives
			WHERE id = $1 AND status = 'active'
			ORDER BY updated_at DESC
			LIMIT 1
		`, objectiveColumns)
		arg = ref.ID
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM objectives
			WHERE title = $1 AND status = 'active'
			ORDER BY updated_at DESC
			LIMIT 1
		`, objectiveColumns)
		arg = ref.Title
	}

	row := s.db.QueryRow(ctx, query, arg)
	obj, err := scanObjective(row)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	metrics.RecordRemoteOp(op, "ok", time.Since(start))
	return obj, nil
}

func (s *PostgresStore) InsertObjective(ctx context.Context, draft ObjectiveDraft) (*model.Objective, error) {
	const op = "insert_objective"
	start := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO objectives (title, description, target_date, location, budget_planned,
			strategic_importance, status, tags, currency)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $8)
		RETURNING %s
	`, objectiveColumns)

	row := tx.QueryRow(ctx, query,
		draft.Title,
		draft.Description,
		draft.TargetDate,
		draft.Location,
		draft.BudgetPlanned,
		draft.StrategicImportance,
		draft.Tags,
		draft.Currency,
	)
	obj, err := scanObjective(row)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	if err := s.emitChangeEvent(ctx, tx, mqcontracts.EventTypeInsert, obj); err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	s.logger.Info("Objective inserted",
		zap.String("id", obj.ID.String()),
		zap.String("title", obj.Title),
	)
	metrics.RecordRemoteOp(op, "ok", time.Since(start))
	return obj, nil
}

func (s *PostgresStore) UpdateObjective(ctx context.Context, id uuid.UUID, patch *model.ObjectivePatch) (*model.Objective, error) {
	const op = "update_objective"
	start := time.Now()

	set, args := buildUpdateSet(patch)
	if len(set) == 0 {
		return nil, syncerr.Validation(op, fmt.Errorf("empty patch"))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}
	defer tx.Rollback(ctx)

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE objectives
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s
	`, set.clause(), len(args), objectiveColumns)

	row := tx.QueryRow(ctx, query, args...)
	obj, err := scanObjective(row)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	if err := s.emitChangeEvent(ctx, tx, mqcontracts.EventTypeUpdate, obj); err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	s.logger.Debug("Objective updated", zap.String("id", obj.ID.String()))
	metrics.RecordRemoteOp(op, "ok", time.Since(start))
	return obj, nil
}

func (s *PostgresStore) FetchKeyResults(ctx context.Context, objectiveID uuid.UUID) ([]model.KeyResult, error) {
	const op = "fetch_key_results"
	start := time.Now()

	query := `
		SELECT id, objective_id, title, description, progress, target_value,
			current_value, unit, owner_id, status
		FROM key_results
		WHERE objective_id = $1
		ORDER BY title ASC
	`
	rows, err := s.db.Query(ctx, query, objectiveID)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}
	defer rows.Close()

	var krs []model.KeyResult
	for rows.Next() {
		var kr model.KeyResult
		err := rows.Scan(
			&kr.ID,
			&kr.ObjectiveID,
			&kr.Title,
			&kr.Description,
			&kr.Progress,
			&kr.TargetValue,
			&kr.CurrentValue,
			&kr.Unit,
			&kr.OwnerID,
			&kr.Status,
		)
		if err != nil {
			metrics.RecordRemoteOp(op, "error", time.Since(start))
			return nil, syncerr.Classify(op, err)
		}
		krs = append(krs, kr)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	metrics.RecordRemoteOp(op, "ok", time.Since(start))
	return krs, nil
}

func (s *PostgresStore) InsertKeyResultsBatch(ctx context.Context, objectiveID uuid.UUID, drafts []KeyResultDraft) ([]model.KeyResult, error) {
	const op = "insert_key_results_batch"
	start := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO key_results (objective_id, title, description, progress,
			target_value, current_value, unit, owner_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, objective_id, title, description, progress, target_value,
			current_value, unit, owner_id, status
	`

	krs := make([]model.KeyResult, 0, len(drafts))
	for _, draft := range drafts {
		progress := model.ComputeProgress(draft.CurrentValue, draft.TargetValue)
		var kr model.KeyResult
		err := tx.QueryRow(ctx, query,
			objectiveID,
			draft.Title,
			draft.Description,
			progress,
			draft.TargetValue,
			draft.CurrentValue,
			draft.Unit,
			draft.OwnerID,
			model.KeyResultStatusOnTrack,
		).Scan(
			&kr.ID,
			&kr.ObjectiveID,
			&kr.Title,
			&kr.Description,
			&kr.Progress,
			&kr.TargetValue,
			&kr.CurrentValue,
			&kr.Unit,
			&kr.OwnerID,
			&kr.Status,
		)
		if err != nil {
			metrics.RecordRemoteOp(op, "error", time.Since(start))
			return nil, syncerr.Classify(op, err)
		}
		krs = append(krs, kr)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordRemoteOp(op, "error", time.Since(start))
		return nil, syncerr.Classify(op, err)
	}

	s.logger.Info("Key results seeded",
		zap.String("objective_id", objectiveID.String()),
		zap.Int("count", len(krs)),
	)
	metrics.RecordRemoteOp(op, "ok", time.Since(start))
	return krs, nil
}

// emitChangeEvent writes the change-feed document to the outbox inside tx.
func (s *PostgresStore) emitChangeEvent(ctx context.Context, tx pgx.Tx, eventType string, obj *model.Objective) error {
	record, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode change event record: %w", err)
	}

	payload := mqcontracts.ObjectiveChangedPayload{
		EventID:   uuid.New(),
		EventType: eventType,
		Table:     "objectives",
		New:       record,
		EmittedAt: time.Now().UTC(),
	}

	routingKey := mqcontracts.RoutingKeyObjectiveUpdated
	if eventType == mqcontracts.EventTypeInsert {
		routingKey = mqcontracts.RoutingKeyObjectiveInserted
	}
	return s.outbox.InsertEvent(ctx, tx, routingKey, payload)
}

func scanObjective(row pgx.Row) (*model.Objective, error) {
	var obj model.Objective
	err := row.Scan(
		&obj.ID,
		&obj.Title,
		&obj.Description,
		&obj.TargetDate,
		&obj.Location,
		&obj.BudgetPlanned,
		&obj.StrategicImportance,
		&obj.Status,
		&obj.Tags,
		&obj.Currency,
		&obj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// updateSet accumulates SET fragments with positional args.
type updateSet []string

func (u updateSet) clause() string {
	out := ""
	for i, s := range u {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func buildUpdateSet(patch *model.ObjectivePatch) (updateSet, []any) {
	var set updateSet
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.TargetDate != nil {
		add("target_date", *patch.TargetDate)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.BudgetPlanned != nil {
		add("budget_planned", *patch.BudgetPlanned)
	}
	if patch.StrategicImportance != nil {
		add("strategic_importance", *patch.StrategicImportance)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Tags != nil {
		add("tags", *patch.Tags)
	}
	if patch.Currency != nil {
		add("currency", *patch.Currency)
	}
	return set, args
}
