package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// mockOperation tracks invocation count and simulates transient failures
type mockOperation struct {
	invocations  int
	failUntil    int // Fail for invocations < failUntil
	transientErr error
	fatalErr     error
}

func (m *mockOperation) execute(_ context.Context) error {
	m.invocations++

	if m.invocations < m.failUntil {
		if m.transientErr != nil {
			return m.transientErr
		}
		return &pgconn.PgError{Code: "08006", Message: "connection failure"}
	}

	if m.invocations == m.failUntil && m.fatalErr != nil {
		return m.fatalErr
	}

	return nil
}

func fastStrategy(maxAttempts int) *ExponentialBackoff {
	return NewExponentialBackoff(maxAttempts, WithInitialDelay(time.Millisecond), WithJitter(0))
}

func TestExecutor_Execute_SuccessOnFirstAttempt(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(3))
	op := &mockOperation{failUntil: 1}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_Execute_SuccessAfterRetries(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(5))
	op := &mockOperation{failUntil: 4}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if op.invocations != 4 {
		t.Errorf("Expected 4 invocations, got %d", op.invocations)
	}
}

func TestExecutor_Execute_FatalErrorNoRetry(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(5))
	fatal := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	op := &mockOperation{failUntil: 1, fatalErr: fatal}

	err := executor.Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Errorf("Expected fatal error, got %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_Execute_ExhaustsAttempts(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(2))
	op := &mockOperation{failUntil: 100}

	err := executor.Execute(context.Background(), op.execute)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	// One initial attempt plus two retries.
	if op.invocations != 3 {
		t.Errorf("Expected 3 invocations, got %d", op.invocations)
	}
}

func TestExecutor_Execute_ContextCancelled(t *testing.T) {
	strategy := NewExponentialBackoff(5, WithInitialDelay(time.Hour), WithMaxDelay(time.Hour), WithJitter(0))
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), strategy)
	op := &mockOperation{failUntil: 100}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := executor.Execute(ctx, op.execute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestExecutor_WithOnRetry_DoesNotMutateReceiver(t *testing.T) {
	base := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(3))

	var calls int
	withCallback := base.WithOnRetry(func(int, error, time.Duration) { calls++ })

	if base.onRetry != nil {
		t.Error("WithOnRetry modified the receiver")
	}

	op := &mockOperation{failUntil: 3}
	if err := withCallback.Execute(context.Background(), op.execute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 retry callbacks, got %d", calls)
	}
}

func TestExecutor_ClassifierFunc(t *testing.T) {
	notYet := errors.New("not yet")
	classifier := ClassifierFunc(func(err error) bool { return errors.Is(err, notYet) })
	executor := NewExecutor(classifier, fastStrategy(3))
	op := &mockOperation{failUntil: 3, transientErr: notYet}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success, got %v", err)
	}
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil classifier")
		}
	}()
	NewExecutor(nil, fastStrategy(1))
}
