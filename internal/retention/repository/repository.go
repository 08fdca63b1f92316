package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymops_backend/platform/apperr"
)

const (
	riskNotFoundMessage = "member risk not found"
	taskNotFoundMessage = "task not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new retention repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const riskColumns = `r.member_id, m.full_name, m.email, r.score, r.level, r.reasons,
		r.days_since_checkin, r.last_check_in_at, r.subscription_ends_at,
		r.unpaid_pending_count, r.computed_at`

func scanMemberRisk(row pgx.Row) (MemberRisk, error) {
	var mr MemberRisk
	err := row.Scan(
		&mr.MemberID, &mr.FullName, &mr.Email, &mr.Score, &mr.Level, &mr.Reasons,
		&mr.DaysSinceCheckIn, &mr.LastCheckInAt, &mr.SubscriptionEndsAt,
		&mr.UnpaidPendingCount, &mr.ComputedAt,
	)
	return mr, err
}

// ListActiveMemberSignals loads the activity snapshot for every active
// member. rejectedSince bounds the lookback for rejected payments.
func (r *Repo) ListActiveMemberSignals(ctx context.Context, rejectedSince time.Time) ([]MemberSignals, error) {
	query := `
		SELECT
			m.id, m.full_name, m.email,
			(SELECT MAX(c.checked_in_at) FROM check_ins c WHERE c.member_id = m.id),
			(SELECT MIN(s.ends_at) FROM subscriptions s
				WHERE s.member_id = m.id
				  AND s.status IN ('ACTIVE', 'PENDING', 'FROZEN')
				  AND s.ends_at IS NOT NULL),
			(SELECT COUNT(*) FROM payments p WHERE p.member_id = m.id AND p.status = 'PENDING'),
			EXISTS (SELECT 1 FROM payments p
				WHERE p.member_id = m.id AND p.status = 'REJECTED' AND p.created_at >= $1)
		FROM members m
		WHERE m.status = 'ACTIVE'
		ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, rejectedSince)
	if err != nil {
		return nil, fmt.Errorf("list active member signals: %w", err)
	}
	defer rows.Close()

	var out []MemberSignals
	for rows.Next() {
		var s MemberSignals
		if err := rows.Scan(
			&s.MemberID, &s.FullName, &s.Email,
			&s.LastCheckInAt, &s.SubscriptionEndsAt,
			&s.PendingPaymentCount, &s.HasRecentRejectedPayment,
		); err != nil {
			return nil, fmt.Errorf("scan member signals: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member signals: %w", err)
	}

	return out, nil
}

// UpsertMemberRisk writes the latest risk snapshot for a member.
func (r *Repo) UpsertMemberRisk(ctx context.Context, params UpsertRiskParams) error {
	query := `
		INSERT INTO member_retention_risk (
			member_id, score, level, reasons, days_since_checkin,
			last_check_in_at, subscription_ends_at, unpaid_pending_count, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (member_id) DO UPDATE SET
			score = EXCLUDED.score,
			level = EXCLUDED.level,
			reasons = EXCLUDED.reasons,
			days_since_checkin = EXCLUDED.days_since_checkin,
			last_check_in_at = EXCLUDED.last_check_in_at,
			subscription_ends_at = EXCLUDED.subscription_ends_at,
			unpaid_pending_count = EXCLUDED.unpaid_pending_count,
			computed_at = EXCLUDED.computed_at`

	_, err := r.pool.Exec(ctx, query,
		params.MemberID, params.Score, params.Level, params.Reasons,
		params.DaysSinceCheckIn, params.LastCheckInAt, params.SubscriptionEndsAt,
		params.UnpaidPendingCount, params.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert member risk: %w", err)
	}

	return nil
}

// ListMemberRisks lists risk snapshots, highest scores first. Search
// matches member name or email, case insensitively.
func (r *Repo) ListMemberRisks(ctx context.Context, filter RiskFilter) ([]MemberRisk, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + riskColumns + `
		FROM member_retention_risk r
		JOIN members m ON m.id = r.member_id
		WHERE ($1::text IS NULL OR r.level = $1)
		  AND ($2::int IS NULL OR r.score >= $2)
		  AND ($3::text IS NULL OR m.full_name ILIKE '%' || $3 || '%' OR m.email ILIKE '%' || $3 || '%')
		ORDER BY r.score DESC, m.full_name ASC
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, filter.Level, filter.MinScore, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list member risks: %w", err)
	}
	defer rows.Close()

	var out []MemberRisk
	for rows.Next() {
		mr, err := scanMemberRisk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member risk: %w", err)
		}
		out = append(out, mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member risks: %w", err)
	}

	return out, nil
}

// GetMemberRisk retrieves one member's latest risk snapshot.
func (r *Repo) GetMemberRisk(ctx context.Context, memberID uuid.UUID) (MemberRisk, error) {
	query := `
		SELECT ` + riskColumns + `
		FROM member_retention_risk r
		JOIN members m ON m.id = r.member_id
		WHERE r.member_id = $1`

	mr, err := scanMemberRisk(r.pool.QueryRow(ctx, query, memberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MemberRisk{}, apperr.NotFound(riskNotFoundMessage)
		}
		return MemberRisk{}, fmt.Errorf("get member risk: %w", err)
	}

	return mr, nil
}

// GetOverview aggregates the dashboard counters in a single round trip.
func (r *Repo) GetOverview(ctx context.Context, now time.Time) (Overview, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM members WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM member_retention_risk WHERE level = 'HIGH'),
			(SELECT COUNT(*) FROM member_retention_risk WHERE level = 'MEDIUM'),
			(SELECT COUNT(*) FROM member_retention_risk WHERE level = 'LOW'),
			(SELECT COUNT(*) FROM retention_tasks WHERE status = 'OPEN'),
			(SELECT COUNT(*) FROM retention_tasks WHERE status = 'IN_PROGRESS'),
			(SELECT COUNT(*) FROM retention_tasks
				WHERE status IN ('OPEN', 'IN_PROGRESS') AND due_date < $1)`

	var o Overview
	err := r.pool.QueryRow(ctx, query, now).Scan(
		&o.ActiveMembers, &o.HighRisk, &o.MediumRisk, &o.LowRisk,
		&o.OpenTasks, &o.InProgressTasks, &o.OverdueTasks,
	)
	if err != nil {
		return Overview{}, fmt.Errorf("get retention overview: %w", err)
	}

	return o, nil
}

const taskColumns = `
	t.id, t.member_id, m.full_name, t.title, t.note, t.status, t.priority,
	t.assigned_to_id, t.due_date, t.resolved_at, t.created_at, t.updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.MemberID, &t.MemberName, &t.Title, &t.Note, &t.Status, &t.Priority,
		&t.AssignedToID, &t.DueDate, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func scanTasks(rows pgx.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// GetTask retrieves a task by id.
func (r *Repo) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM retention_tasks t
		JOIN members m ON m.id = t.member_id
		WHERE t.id = $1`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, apperr.NotFound(taskNotFoundMessage)
		}
		return Task{}, fmt.Errorf("get task: %w", err)
	}

	return t, nil
}

// ListTasks lists tasks with optional status and assignee filters,
// most urgent first.
func (r *Repo) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + taskColumns + `
		FROM retention_tasks t
		JOIN members m ON m.id = t.member_id
		WHERE ($1::text IS NULL OR t.status = $1)
		  AND ($2::int IS NULL OR t.priority = $2)
		  AND ($3::uuid IS NULL OR t.assigned_to_id = $3)
		  AND ($4::uuid IS NULL OR t.member_id = $4)
		ORDER BY t.priority ASC, t.due_date ASC NULLS LAST, t.created_at ASC
		LIMIT $5 OFFSET $6`

	rows, err := r.pool.Query(ctx, query,
		filter.Status, filter.Priority, filter.AssignedToID, filter.MemberID, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListTasksByIDs loads the given tasks in one query. Missing ids are
// simply absent from the result.
func (r *Repo) ListTasksByIDs(ctx context.Context, ids []uuid.UUID) ([]Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM retention_tasks t
		JOIN members m ON m.id = t.member_id
		WHERE t.id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list tasks by ids: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListMemberTasks lists all tasks for one member, newest first.
func (r *Repo) ListMemberTasks(ctx context.Context, memberID uuid.UUID) ([]Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM retention_tasks t
		JOIN members m ON m.id = t.member_id
		WHERE t.member_id = $1
		ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// HasOpenTask reports whether the member already has an OPEN or
// IN_PROGRESS follow-up task.
func (r *Repo) HasOpenTask(ctx context.Context, memberID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM retention_tasks
			WHERE member_id = $1 AND status IN ('OPEN', 'IN_PROGRESS'))`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, memberID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check open task: %w", err)
	}

	return exists, nil
}

// HasRecentlyResolvedTask reports whether a DONE or DISMISSED task for
// the member was resolved at or after cutoff. Tasks without a resolved
// timestamp fall back to their last update time.
func (r *Repo) HasRecentlyResolvedTask(ctx context.Context, memberID uuid.UUID, cutoff time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM retention_tasks
			WHERE member_id = $1
			  AND status IN ('DONE', 'DISMISSED')
			  AND COALESCE(resolved_at, updated_at) >= $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, memberID, cutoff).Scan(&exists); err != nil {
		return false, fmt.Errorf("check recently resolved task: %w", err)
	}

	return exists, nil
}

// ListStaffCandidates lists active back-office users with their open
// task load. Admins take follow-ups too, not just staff.
func (r *Repo) ListStaffCandidates(ctx context.Context) ([]StaffCandidate, error) {
	query := `
		SELECT u.id, u.full_name, u.created_at,
			(SELECT COUNT(*) FROM retention_tasks t
				WHERE t.assigned_to_id = u.id AND t.status IN ('OPEN', 'IN_PROGRESS'))
		FROM users u
		WHERE u.role IN ('ADMIN', 'STAFF') AND u.is_active = true`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list staff candidates: %w", err)
	}
	defer rows.Close()

	var out []StaffCandidate
	for rows.Next() {
		var c StaffCandidate
		if err := rows.Scan(&c.ID, &c.FullName, &c.CreatedAt, &c.OpenTaskCount); err != nil {
			return nil, fmt.Errorf("scan staff candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff candidates: %w", err)
	}

	return out, nil
}

// IsAssignableUser reports whether the user is an active back-office
// account tasks may be assigned to.
func (r *Repo) IsAssignableUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE id = $1 AND role IN ('ADMIN', 'STAFF') AND is_active = true)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check assignable user: %w", err)
	}

	return exists, nil
}

// CreateTask inserts a new follow-up task and returns it.
func (r *Repo) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	query := `
		WITH inserted AS (
			INSERT INTO retention_tasks (id, member_id, title, note, status, priority, assigned_to_id, due_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT ` + taskColumns + `
		FROM inserted t
		JOIN members m ON m.id = t.member_id`

	t, err := scanTask(r.pool.QueryRow(ctx, query,
		uuid.New(), params.MemberID, params.Title, params.Note, params.Status,
		params.Priority, params.AssignedToID, params.DueDate,
	))
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}

	return t, nil
}

// UpdateTask applies a partial update and returns the updated task.
func (r *Repo) UpdateTask(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (Task, error) {
	query := `
		WITH updated AS (
			UPDATE retention_tasks SET
				status = COALESCE($2, status),
				priority = COALESCE($3, priority),
				assigned_to_id = COALESCE($4, assigned_to_id),
				note = COALESCE($5, note),
				due_date = COALESCE($6, due_date),
				resolved_at = CASE WHEN $7 THEN $8 ELSE resolved_at END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + taskColumns + `
		FROM updated t
		JOIN members m ON m.id = t.member_id`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id,
		params.Status, params.Priority, params.AssignedToID, params.Note,
		params.DueDate, params.SetResolvedAt, params.ResolvedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, apperr.NotFound(taskNotFoundMessage)
		}
		return Task{}, fmt.Errorf("update task: %w", err)
	}

	return t, nil
}

// BulkUpdateTasks applies one partial update to every listed task in a
// single statement and returns the affected row count.
func (r *Repo) BulkUpdateTasks(ctx context.Context, ids []uuid.UUID, params UpdateTaskParams) (int64, error) {
	query := `
		UPDATE retention_tasks SET
			status = COALESCE($2, status),
			priority = COALESCE($3, priority),
			assigned_to_id = COALESCE($4, assigned_to_id),
			note = COALESCE($5, note),
			due_date = COALESCE($6, due_date),
			resolved_at = CASE WHEN $7 THEN $8 ELSE resolved_at END,
			updated_at = NOW()
		WHERE id = ANY($1)`

	tag, err := r.pool.Exec(ctx, query, ids,
		params.Status, params.Priority, params.AssignedToID, params.Note,
		params.DueDate, params.SetResolvedAt, params.ResolvedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk update tasks: %w", err)
	}

	return tag.RowsAffected(), nil
}

// InsertTaskHistory writes one audit row for a task update.
func (r *Repo) InsertTaskHistory(ctx context.Context, params HistoryParams) error {
	query := `
		INSERT INTO retention_task_history (
			id, task_id, changed_by_id,
			old_status, new_status, old_priority, new_priority,
			old_assigned_to_id, new_assigned_to_id,
			old_note, new_note, old_due_date, new_due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), params.TaskID, params.ChangedByID,
		params.OldStatus, params.NewStatus, params.OldPriority, params.NewPriority,
		params.OldAssignedToID, params.NewAssignedToID,
		params.OldNote, params.NewNote, params.OldDueDate, params.NewDueDate,
	)
	if err != nil {
		return fmt.Errorf("insert task history: %w", err)
	}

	return nil
}
