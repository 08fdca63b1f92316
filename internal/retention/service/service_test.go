package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"gymops_backend/internal/events"
	"gymops_backend/internal/retention/repository"
	"gymops_backend/platform/apperr"
	"gymops_backend/platform/logger"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	signals    []repository.MemberSignals
	risks      map[uuid.UUID]repository.UpsertRiskParams
	tasks      map[uuid.UUID]repository.Task
	staff      []repository.StaffCandidate
	assignable map[uuid.UUID]bool
	history    []repository.HistoryParams
	upsertErrs map[uuid.UUID]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		risks:      make(map[uuid.UUID]repository.UpsertRiskParams),
		tasks:      make(map[uuid.UUID]repository.Task),
		assignable: make(map[uuid.UUID]bool),
		upsertErrs: make(map[uuid.UUID]error),
	}
}

func (f *fakeRepo) ListActiveMemberSignals(_ context.Context, _ time.Time) ([]repository.MemberSignals, error) {
	return f.signals, nil
}

func (f *fakeRepo) UpsertMemberRisk(_ context.Context, params repository.UpsertRiskParams) error {
	if err := f.upsertErrs[params.MemberID]; err != nil {
		return err
	}
	f.risks[params.MemberID] = params
	return nil
}

func (f *fakeRepo) ListMemberRisks(_ context.Context, filter repository.RiskFilter) ([]repository.MemberRisk, error) {
	var out []repository.MemberRisk
	for id, r := range f.risks {
		if filter.Level != nil && r.Level != *filter.Level {
			continue
		}
		if filter.MinScore != nil && r.Score < *filter.MinScore {
			continue
		}
		out = append(out, repository.MemberRisk{MemberID: id, Score: r.Score, Level: r.Level})
	}
	return out, nil
}

func (f *fakeRepo) GetMemberRisk(_ context.Context, memberID uuid.UUID) (repository.MemberRisk, error) {
	r, ok := f.risks[memberID]
	if !ok {
		return repository.MemberRisk{}, apperr.NotFound("member risk not found")
	}
	return repository.MemberRisk{MemberID: memberID, Score: r.Score, Level: r.Level}, nil
}

func (f *fakeRepo) GetOverview(_ context.Context, _ time.Time) (repository.Overview, error) {
	return repository.Overview{}, nil
}

func (f *fakeRepo) GetTask(_ context.Context, id uuid.UUID) (repository.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, apperr.NotFound("task not found")
	}
	return t, nil
}

func (f *fakeRepo) ListTasks(_ context.Context, _ repository.TaskFilter) ([]repository.Task, error) {
	var out []repository.Task
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) ListTasksByIDs(_ context.Context, ids []uuid.UUID) ([]repository.Task, error) {
	var out []repository.Task
	for _, id := range ids {
		if t, ok := f.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListMemberTasks(_ context.Context, memberID uuid.UUID) ([]repository.Task, error) {
	var out []repository.Task
	for _, t := range f.tasks {
		if t.MemberID == memberID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) HasOpenTask(_ context.Context, memberID uuid.UUID) (bool, error) {
	for _, t := range f.tasks {
		if t.MemberID == memberID &&
			(t.Status == repository.TaskStatusOpen || t.Status == repository.TaskStatusInProgress) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasRecentlyResolvedTask(_ context.Context, memberID uuid.UUID, cutoff time.Time) (bool, error) {
	for _, t := range f.tasks {
		if t.MemberID != memberID {
			continue
		}
		if t.Status != repository.TaskStatusDone && t.Status != repository.TaskStatusDismissed {
			continue
		}
		resolved := t.UpdatedAt
		if t.ResolvedAt != nil {
			resolved = *t.ResolvedAt
		}
		if !resolved.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListStaffCandidates(_ context.Context) ([]repository.StaffCandidate, error) {
	return f.staff, nil
}

func (f *fakeRepo) IsAssignableUser(_ context.Context, userID uuid.UUID) (bool, error) {
	return f.assignable[userID], nil
}

func (f *fakeRepo) CreateTask(_ context.Context, params repository.CreateTaskParams) (repository.Task, error) {
	t := repository.Task{
		ID:           uuid.New(),
		MemberID:     params.MemberID,
		Title:        params.Title,
		Note:         params.Note,
		Status:       params.Status,
		Priority:     params.Priority,
		AssignedToID: params.AssignedToID,
		DueDate:      params.DueDate,
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeRepo) UpdateTask(_ context.Context, id uuid.UUID, params repository.UpdateTaskParams) (repository.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, apperr.NotFound("task not found")
	}
	t = applyParams(t, params)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeRepo) BulkUpdateTasks(_ context.Context, ids []uuid.UUID, params repository.UpdateTaskParams) (int64, error) {
	var n int64
	for _, id := range ids {
		t, ok := f.tasks[id]
		if !ok {
			continue
		}
		f.tasks[id] = applyParams(t, params)
		n++
	}
	return n, nil
}

func (f *fakeRepo) InsertTaskHistory(_ context.Context, params repository.HistoryParams) error {
	f.history = append(f.history, params)
	return nil
}

func applyParams(t repository.Task, params repository.UpdateTaskParams) repository.Task {
	if params.Status != nil {
		t.Status = *params.Status
	}
	if params.Priority != nil {
		t.Priority = *params.Priority
	}
	if params.AssignedToID != nil {
		t.AssignedToID = params.AssignedToID
	}
	if params.Note != nil {
		t.Note = params.Note
	}
	if params.DueDate != nil {
		t.DueDate = params.DueDate
	}
	if params.SetResolvedAt {
		t.ResolvedAt = params.ResolvedAt
	}
	t.UpdatedAt = fixedNow
	return t
}

// fakeBus records published events.
type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

func newTestService(repo *fakeRepo) (*Service, *fakeBus) {
	bus := &fakeBus{}
	svc := New(repo, bus, logger.New("test"))
	svc.now = func() time.Time { return fixedNow }
	return svc, bus
}

func signalsFor(memberID uuid.UUID, lastCheckIn *time.Time) repository.MemberSignals {
	return repository.MemberSignals{
		MemberID: memberID,
		FullName: "Jamie Visser",
		Email:    "jamie@example.com",

		LastCheckInAt: lastCheckIn,
	}
}

func TestRecomputeAllCountsAndPersists(t *testing.T) {
	repo := newFakeRepo()
	recent := fixedNow.AddDate(0, 0, -2)
	highID, lowID := uuid.New(), uuid.New()
	repo.signals = []repository.MemberSignals{
		signalsFor(highID, nil),
		signalsFor(lowID, &recent),
	}
	repo.signals[0].HasRecentRejectedPayment = true
	repo.signals[0].PendingPaymentCount = 2

	svc, _ := newTestService(repo)

	result, err := svc.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 || result.High != 1 || result.Low != 1 || result.Medium != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.TasksCreated != 1 {
		t.Fatalf("expected one follow-up task, got %d", result.TasksCreated)
	}
	high := repo.risks[highID]
	if high.Level != "HIGH" || high.Score != 85 {
		t.Fatalf("unexpected high-risk snapshot: %+v", high)
	}
	if high.LastCheckInAt != nil || high.UnpaidPendingCount != 2 {
		t.Fatalf("snapshot must carry the scored signals: %+v", high)
	}
	low := repo.risks[lowID]
	if low.Level != "LOW" || low.Score != 0 {
		t.Fatalf("unexpected low-risk snapshot: %+v", low)
	}
	if low.LastCheckInAt == nil || !low.LastCheckInAt.Equal(recent) {
		t.Fatalf("snapshot must carry the last check-in: %+v", low)
	}
}

func TestRecomputeAllAbortsOnFirstFailure(t *testing.T) {
	repo := newFakeRepo()
	first, second := uuid.New(), uuid.New()
	repo.signals = []repository.MemberSignals{
		signalsFor(first, nil),
		signalsFor(second, nil),
	}
	repo.upsertErrs[first] = apperr.Internal("db down")

	svc, _ := newTestService(repo)

	_, err := svc.RecomputeAll(context.Background())
	if err == nil {
		t.Fatalf("expected error from failing upsert")
	}
	if _, ok := repo.risks[second]; ok {
		t.Fatalf("batch must stop at the first failure")
	}
}

func TestDispatchSkipsWhenTaskAlreadyOpen(t *testing.T) {
	repo := newFakeRepo()
	memberID := uuid.New()
	repo.signals = []repository.MemberSignals{signalsFor(memberID, nil)}
	repo.signals[0].HasRecentRejectedPayment = true
	repo.tasks[uuid.New()] = repository.Task{
		ID:       uuid.New(),
		MemberID: memberID,
		Status:   repository.TaskStatusInProgress,
	}

	svc, _ := newTestService(repo)

	result, err := svc.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TasksCreated != 0 {
		t.Fatalf("expected no new task while one is in progress")
	}
}

func TestDispatchHonorsResolvedCooldown(t *testing.T) {
	cases := []struct {
		name        string
		resolvedAgo time.Duration
		wantCreated int
	}{
		{"resolved 5 days ago", 5 * 24 * time.Hour, 0},
		{"resolved 20 days ago", 20 * 24 * time.Hour, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			memberID := uuid.New()
			repo.signals = []repository.MemberSignals{signalsFor(memberID, nil)}
			repo.signals[0].HasRecentRejectedPayment = true

			resolvedAt := fixedNow.Add(-tc.resolvedAgo)
			doneID := uuid.New()
			repo.tasks[doneID] = repository.Task{
				ID:         doneID,
				MemberID:   memberID,
				Status:     repository.TaskStatusDone,
				ResolvedAt: &resolvedAt,
			}

			svc, _ := newTestService(repo)

			result, err := svc.RecomputeAll(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.TasksCreated != tc.wantCreated {
				t.Fatalf("expected %d created tasks, got %d", tc.wantCreated, result.TasksCreated)
			}
		})
	}
}

func TestDispatchAssignsLeastLoadedStaff(t *testing.T) {
	repo := newFakeRepo()
	memberID := uuid.New()
	repo.signals = []repository.MemberSignals{signalsFor(memberID, nil)}
	repo.signals[0].HasRecentRejectedPayment = true

	idle := repository.StaffCandidate{ID: uuid.New(), FullName: "Idle", CreatedAt: fixedNow.AddDate(-1, 0, 0)}
	busy := repository.StaffCandidate{ID: uuid.New(), FullName: "Busy", CreatedAt: fixedNow.AddDate(-2, 0, 0), OpenTaskCount: 4}
	repo.staff = []repository.StaffCandidate{busy, idle}

	svc, bus := newTestService(repo)

	if _, err := svc.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var task repository.Task
	for _, t2 := range repo.tasks {
		task = t2
	}
	if task.AssignedToID == nil || *task.AssignedToID != idle.ID {
		t.Fatalf("expected task assigned to least-loaded staff, got %v", task.AssignedToID)
	}
	if task.Title != "Follow up high-risk member" || task.Priority != 1 || task.Status != repository.TaskStatusOpen {
		t.Fatalf("unexpected task defaults: %+v", task)
	}
	if task.Note == nil || *task.Note == "" {
		t.Fatalf("expected a supportive note on dispatcher tasks")
	}
	wantDue := fixedNow.Add(48 * time.Hour)
	if task.DueDate == nil || !task.DueDate.Equal(wantDue) {
		t.Fatalf("expected due date %v, got %v", wantDue, task.DueDate)
	}

	foundCreated := false
	for _, ev := range bus.published {
		if ev.EventName() == events.TopicRetentionTaskCreated {
			foundCreated = true
		}
	}
	if !foundCreated {
		t.Fatalf("expected a task created event on the bus")
	}
}

func TestDispatchAssignsLoneAdmin(t *testing.T) {
	repo := newFakeRepo()
	memberID := uuid.New()
	repo.signals = []repository.MemberSignals{signalsFor(memberID, nil)}
	repo.signals[0].HasRecentRejectedPayment = true

	// A fresh install has only the bootstrap admin; the follow-up must
	// still land on their plate instead of going unassigned.
	admin := repository.StaffCandidate{ID: uuid.New(), FullName: "GymOps Admin", CreatedAt: fixedNow.AddDate(-1, 0, 0)}
	repo.staff = []repository.StaffCandidate{admin}

	svc, _ := newTestService(repo)

	if _, err := svc.RecomputeAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var task repository.Task
	for _, t2 := range repo.tasks {
		task = t2
	}
	if task.AssignedToID == nil || *task.AssignedToID != admin.ID {
		t.Fatalf("expected task assigned to the admin, got %v", task.AssignedToID)
	}
}

func TestUpdateTaskDoneStampsResolvedAt(t *testing.T) {
	repo := newFakeRepo()
	taskID := uuid.New()
	repo.tasks[taskID] = repository.Task{ID: taskID, MemberID: uuid.New(), Status: repository.TaskStatusOpen, Priority: 1}

	svc, bus := newTestService(repo)

	status := repository.TaskStatusDone
	updated, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{Status: &status}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(fixedNow) {
		t.Fatalf("expected resolved_at stamped with now, got %v", updated.ResolvedAt)
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected one history row, got %d", len(repo.history))
	}
	if repo.history[0].OldStatus != repository.TaskStatusOpen || repo.history[0].NewStatus != repository.TaskStatusDone {
		t.Fatalf("unexpected history statuses: %+v", repo.history[0])
	}

	found := false
	for _, ev := range bus.published {
		if ev.EventName() == events.TopicRetentionTaskCompleted {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a task completed event")
	}
}

func TestUpdateTaskResultingDoneNotifies(t *testing.T) {
	repo := newFakeRepo()
	taskID := uuid.New()
	resolvedAt := fixedNow.AddDate(0, 0, -1)
	repo.tasks[taskID] = repository.Task{
		ID: taskID, MemberID: uuid.New(),
		Status: repository.TaskStatusDone, Priority: 1, ResolvedAt: &resolvedAt,
	}

	svc, bus := newTestService(repo)

	// An update whose resulting status is DONE notifies even when the
	// task was already done.
	status := repository.TaskStatusDone
	if _, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{Status: &status}, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, ev := range bus.published {
		if ev.EventName() == events.TopicRetentionTaskCompleted {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a task completed event")
	}
}

func TestUpdateTaskReopenClearsResolvedAt(t *testing.T) {
	repo := newFakeRepo()
	taskID := uuid.New()
	resolvedAt := fixedNow.AddDate(0, 0, -1)
	repo.tasks[taskID] = repository.Task{
		ID: taskID, MemberID: uuid.New(),
		Status: repository.TaskStatusDone, Priority: 1, ResolvedAt: &resolvedAt,
	}

	svc, _ := newTestService(repo)

	status := repository.TaskStatusOpen
	updated, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{Status: &status}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ResolvedAt != nil {
		t.Fatalf("expected resolved_at cleared, got %v", updated.ResolvedAt)
	}
}

func TestUpdateTaskOmittedStatusKeepsResolvedAt(t *testing.T) {
	repo := newFakeRepo()
	taskID := uuid.New()
	resolvedAt := fixedNow.AddDate(0, 0, -1)
	repo.tasks[taskID] = repository.Task{
		ID: taskID, MemberID: uuid.New(),
		Status: repository.TaskStatusDone, Priority: 1, ResolvedAt: &resolvedAt,
	}

	svc, _ := newTestService(repo)

	priority := 3
	updated, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{Priority: &priority}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("expected resolved_at untouched, got %v", updated.ResolvedAt)
	}
}

func TestUpdateTaskNoChangeWritesNoHistory(t *testing.T) {
	repo := newFakeRepo()
	taskID := uuid.New()
	repo.tasks[taskID] = repository.Task{ID: taskID, MemberID: uuid.New(), Status: repository.TaskStatusOpen, Priority: 2}

	svc, _ := newTestService(repo)

	priority := 2
	if _, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{Priority: &priority}, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.history) != 0 {
		t.Fatalf("expected no history rows for a no-op update, got %d", len(repo.history))
	}
}

func TestUpdateTaskRejectsInvalidStatus(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	status := "ARCHIVED"
	_, err := svc.UpdateTask(context.Background(), uuid.New(), UpdateTaskInput{Status: &status}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateTaskRejectsOutsideAssignee(t *testing.T) {
	repo := newFakeRepo()
	taskID := uuid.New()
	repo.tasks[taskID] = repository.Task{ID: taskID, MemberID: uuid.New(), Status: repository.TaskStatusOpen, Priority: 1}

	staffID, strangerID := uuid.New(), uuid.New()
	repo.assignable[staffID] = true

	svc, _ := newTestService(repo)

	_, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{AssignedToID: &strangerID}, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for non back-office assignee, got %v", err)
	}

	updated, err := svc.UpdateTask(context.Background(), taskID, UpdateTaskInput{AssignedToID: &staffID}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AssignedToID == nil || *updated.AssignedToID != staffID {
		t.Fatalf("expected task assigned to %s, got %v", staffID, updated.AssignedToID)
	}
}

func TestBulkUpdateTasksEmptyPatchRejected(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.BulkUpdateTasks(context.Background(), []uuid.UUID{uuid.New()}, UpdateTaskInput{}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty patch, got %v", err)
	}
}

func TestBulkUpdateTasksWritesHistoryPerChangedTask(t *testing.T) {
	repo := newFakeRepo()
	openID, doneID := uuid.New(), uuid.New()
	repo.tasks[openID] = repository.Task{ID: openID, MemberID: uuid.New(), Status: repository.TaskStatusOpen, Priority: 1}
	repo.tasks[doneID] = repository.Task{ID: doneID, MemberID: uuid.New(), Status: repository.TaskStatusDone, Priority: 1}

	svc, bus := newTestService(repo)

	status := repository.TaskStatusDone
	count, err := svc.BulkUpdateTasks(context.Background(), []uuid.UUID{openID, doneID}, UpdateTaskInput{Status: &status}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows touched, got %d", count)
	}
	if len(repo.history) != 1 || repo.history[0].TaskID != openID {
		t.Fatalf("expected one history row for the changed task, got %+v", repo.history)
	}

	var bulk *events.RetentionTasksBulkResolved
	for _, ev := range bus.published {
		if e, ok := ev.(events.RetentionTasksBulkResolved); ok {
			bulk = &e
		}
	}
	if bulk == nil {
		t.Fatalf("expected a bulk resolved event")
	}
	if len(bulk.TaskIDs) != 2 {
		t.Fatalf("every touched row should be reported, got %v", bulk.TaskIDs)
	}
}

func TestBulkDoneOverAlreadyDoneStillNotifies(t *testing.T) {
	repo := newFakeRepo()
	first, second := uuid.New(), uuid.New()
	repo.tasks[first] = repository.Task{ID: first, MemberID: uuid.New(), Status: repository.TaskStatusDone, Priority: 1}
	repo.tasks[second] = repository.Task{ID: second, MemberID: uuid.New(), Status: repository.TaskStatusDone, Priority: 1}

	svc, bus := newTestService(repo)

	status := repository.TaskStatusDone
	count, err := svc.BulkUpdateTasks(context.Background(), []uuid.UUID{first, second}, UpdateTaskInput{Status: &status}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows touched, got %d", count)
	}

	var bulk *events.RetentionTasksBulkResolved
	for _, ev := range bus.published {
		if e, ok := ev.(events.RetentionTasksBulkResolved); ok {
			bulk = &e
		}
	}
	if bulk == nil {
		t.Fatalf("expected an aggregate completion event for a done patch")
	}
	if len(bulk.TaskIDs) != 2 {
		t.Fatalf("expected both rows reported, got %v", bulk.TaskIDs)
	}
}
