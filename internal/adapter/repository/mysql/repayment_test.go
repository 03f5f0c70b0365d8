package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"sme-escrow/internal/domain/repayment"

	"github.com/shopspring/decimal"
)

func makeInstallments(loanID uint64, start time.Time, n int) []repayment.Installment {
	out := make([]repayment.Installment, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, repayment.Installment{
			LoanID:            loanID,
			InstallmentNumber: i,
			DueDate:           start.AddDate(0, 0, 30*i),
			PrincipalAmount:   decimal.RequireFromString("100.00"),
			InterestAmount:    decimal.RequireFromString("10.00"),
			TotalAmount:       decimal.RequireFromString("110.00"),
			Status:            repayment.StatusPending,
		})
	}
	return out
}

func TestRepaymentRepository_BatchListDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	l := makeLoan("LN-REPAY", "sme-1")
	if err := NewLoanRepository(db).Create(ctx, l); err != nil {
		t.Fatalf("create loan: %v", err)
	}
	repo := NewRepaymentRepository(db)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := repo.CreateBatch(ctx, makeInstallments(l.ID, start, 3)); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := repo.CreateBatch(ctx, makeInstallments(l.ID, start, 1)); err == nil {
		t.Fatalf("expected unique violation on (loan, installment_number)")
	}

	list, err := repo.ListByLoan(ctx, l.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("list: %d err=%v", len(list), err)
	}
	for i, it := range list {
		if it.InstallmentNumber != i+1 {
			t.Fatalf("installments out of order: %+v", list)
		}
	}

	n, err := repo.DeleteByLoan(ctx, l.ID)
	if err != nil || n != 3 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if err := repo.CreateBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch must be a no-op: %v", err)
	}
}

func TestRepaymentRepository_PayAndOverdue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	l := makeLoan("LN-OVERDUE", "sme-1")
	if err := NewLoanRepository(db).Create(ctx, l); err != nil {
		t.Fatalf("create loan: %v", err)
	}
	repo := NewRepaymentRepository(db)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.CreateBatch(ctx, makeInstallments(l.ID, start, 3)); err != nil {
		t.Fatalf("batch: %v", err)
	}

	first, err := repo.GetByNumberForUpdate(ctx, l.ID, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	now := start.AddDate(0, 0, 31)
	first.Status = repayment.StatusPaid
	first.PaidAt = &now
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.GetByNumberForUpdate(ctx, l.ID, 9); !errors.Is(err, repayment.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// due dates: +30d, +60d, +90d; cutoff at +75d hits only #2
	marked, err := repo.MarkOverdue(ctx, start.AddDate(0, 0, 75))
	if err != nil || marked != 1 {
		t.Fatalf("mark overdue: n=%d err=%v", marked, err)
	}
	unpaid, err := repo.CountUnpaid(ctx, l.ID)
	if err != nil || unpaid != 2 {
		t.Fatalf("count unpaid: n=%d err=%v", unpaid, err)
	}
	list, _ := repo.ListByLoan(ctx, l.ID)
	if list[1].Status != repayment.StatusOverdue || list[2].Status != repayment.StatusPending {
		t.Fatalf("unexpected statuses: %s %s", list[1].Status, list[2].Status)
	}
}
