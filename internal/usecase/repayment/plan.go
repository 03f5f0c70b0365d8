package repayment

import (
	"fmt"
	"time"

	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/domain/loan"
	domain "sme-escrow/internal/domain/repayment"

	"github.com/shopspring/decimal"
)

// DueDates selects how installment due dates are derived from the
// disbursement date.
type DueDates string

const (
	// DueApprox30 treats every month as 30 days.
	DueApprox30 DueDates = "approx30"
	// DueCalendar steps real calendar months, clamped to month end.
	DueCalendar DueDates = "calendar"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// TotalInterest is simple interest over the tenure, rate given in percent.
// The result is not rounded.
func TotalInterest(principal, rate decimal.Decimal, tenureMonths int) decimal.Decimal {
	return principal.
		Mul(rate).Div(hundred).
		Mul(decimal.NewFromInt(int64(tenureMonths))).Div(twelve)
}

// Plan lays out the installments for a disbursed loan. Principal, interest
// and the installment total are each split evenly at 2 decimals from the
// unrounded figures; the last installment takes the rounding residue.
func Plan(l *loan.Application, due DueDates) ([]domain.Installment, error) {
	if l.DisbursementDate == nil {
		return nil, fmt.Errorf("loan %s has no disbursement date: %w", l.LoanID, errs.ErrInvalidTransition)
	}
	if l.TenureMonths < 1 {
		return nil, errs.Invalid("tenure_months", "must be positive")
	}
	start := day(*l.DisbursementDate)
	tenure := l.TenureMonths

	var (
		n      int
		dueFor func(i int) time.Time
	)
	switch l.Frequency {
	case loan.FrequencyMonthly:
		n = tenure
		dueFor = func(i int) time.Time { return offset(start, due, i) }
	case loan.FrequencyQuarterly:
		n = (tenure + 2) / 3
		end := offset(start, due, tenure)
		dueFor = func(i int) time.Time {
			d := offset(start, due, 3*i)
			if d.After(end) {
				return end
			}
			return d
		}
	case loan.FrequencyBullet:
		n = 1
		dueFor = func(int) time.Time { return offset(start, due, tenure) }
	default:
		return nil, fmt.Errorf("repayment frequency %q: %w", l.Frequency, errs.ErrUnsupportedFrequency)
	}

	principal := l.Amount.Round(2)
	interest := TotalInterest(principal, l.EffectiveRate(), tenure)
	repay := principal.Add(interest)
	count := decimal.NewFromInt(int64(n))
	perPrincipal := principal.Div(count).Round(2)
	perInterest := interest.Div(count).Round(2)
	perTotal := repay.Div(count).Round(2)

	items := make([]domain.Installment, 0, n)
	for i := 1; i <= n; i++ {
		p, in, total := perPrincipal, perInterest, perTotal
		if i == n {
			prior := decimal.NewFromInt(int64(n - 1))
			p = principal.Sub(perPrincipal.Mul(prior))
			in = interest.Round(2).Sub(perInterest.Mul(prior))
			total = repay.Round(2).Sub(perTotal.Mul(prior))
		}
		items = append(items, domain.Installment{
			LoanID:            l.ID,
			InstallmentNumber: i,
			DueDate:           dueFor(i),
			PrincipalAmount:   p,
			InterestAmount:    in,
			TotalAmount:       total,
			Status:            domain.StatusPending,
		})
	}
	return items, nil
}

// offset moves start forward by months under the due-date policy.
func offset(start time.Time, due DueDates, months int) time.Time {
	if due == DueCalendar {
		return addMonths(start, months)
	}
	return start.AddDate(0, 0, 30*months)
}

// addMonths clamps to the last day of the target month (Jan 31 + 1 = Feb 28).
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	d := t.Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
