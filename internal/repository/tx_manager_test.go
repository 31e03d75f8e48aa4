package repository

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestRunInTx_JoinsOuterTransaction(t *testing.T) {
	outer := &gorm.DB{}
	ctx := context.WithValue(context.Background(), txKey, outer)

	// a nil root pool would panic if a new transaction were opened
	tm := NewTransactionManager(nil)
	called := false
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		called = true
		if got, _ := txCtx.Value(txKey).(*gorm.DB); got != outer {
			t.Error("inner unit should see the outer transaction")
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("RunInTx: called=%v err=%v", called, err)
	}

	sentinel := errors.New("boom")
	if err := tm.RunInTx(ctx, func(context.Context) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("inner error should propagate, got %v", err)
	}
}

func TestInTx(t *testing.T) {
	if InTx(context.Background()) {
		t.Error("background context has no transaction")
	}
	if !InTx(context.WithValue(context.Background(), txKey, &gorm.DB{})) {
		t.Error("expected a transaction in context")
	}
}

func TestLockByID_RequiresTransaction(t *testing.T) {
	repo := NewProjectRepository(nil)
	if _, err := repo.LockByID(context.Background(), 1); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("expected ErrNoTransaction, got %v", err)
	}
}

func TestRequestLockByID_RequiresTransaction(t *testing.T) {
	repo := NewRequestRepository(nil)
	if _, err := repo.LockByID(context.Background(), 1); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("expected ErrNoTransaction, got %v", err)
	}
}
