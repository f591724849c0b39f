package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

func TestStepRepositorySaveResponseAssignsNextVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewStepRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE step_responses").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO step_responses").
		WithArgs(sqlmock.AnyArg(), "s-1", "our vision", "alice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectCommit()

	response, err := repo.SaveResponse(context.Background(), "s-1", "our vision", "alice")
	if err != nil {
		t.Fatalf("SaveResponse() error = %v", err)
	}
	if response.Version != 3 {
		t.Fatalf("version = %d, want 3", response.Version)
	}
	if !response.IsLatest {
		t.Fatalf("new response must carry is_latest")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStepRepositorySaveResponseRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewStepRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE step_responses").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO step_responses").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if _, err := repo.SaveResponse(context.Background(), "s-1", "content", "alice"); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStepRepositoryUpdateStepStatusStampsCompletion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewStepRepository(db)
	mock.ExpectExec("UPDATE module_steps").
		WithArgs("s-1", string(domain.StepCompleted), sqlmock.AnyArg(), "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStepStatus(context.Background(), "s-1", domain.StepCompleted, "alice"); err != nil {
		t.Fatalf("UpdateStepStatus() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStepRepositoryUpdateStepStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewStepRepository(db)
	mock.ExpectExec("UPDATE module_steps").
		WithArgs("missing", string(domain.StepInProgress)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStepStatus(context.Background(), "missing", domain.StepInProgress, "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStepRepositoryGetStepLoadsResponses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewStepRepository(db)
	now := time.Now()

	mock.ExpectQuery("FROM module_steps").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "module_id", "step_type", "title", "order_index", "status", "completed_at", "completed_by"}).
			AddRow("s-1", "m-1", "vision", "Vision", 0, string(domain.StepInProgress), nil, ""))
	mock.ExpectQuery("FROM step_responses").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "step_id", "content", "version", "is_latest", "created_by", "created_at"}).
			AddRow("r-1", "s-1", "draft", 1, false, "alice", now).
			AddRow("r-2", "s-1", "final", 2, true, "alice", now))

	step, err := repo.GetStep(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("GetStep() error = %v", err)
	}
	if len(step.Responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(step.Responses))
	}
	latest := step.LatestResponse()
	if latest == nil || latest.Version != 2 {
		t.Fatalf("latest = %+v, want version 2", latest)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
