package negotiation

import (
	"context"
	"testing"

	"sme-escrow/internal/adapter/repository/mysql"
	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/domain/loan"
	domain "sme-escrow/internal/domain/negotiation"
	"sme-escrow/internal/testutil/dbtest"
	"sme-escrow/pkg/id"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	uc     *Usecase
	loans  *mysql.LoanRepository
	offers *mysql.OfferRepository
	sme    actor.Party
	app    *loan.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		db:     db,
		loans:  mysql.NewLoanRepository(db),
		offers: mysql.NewOfferRepository(db),
		sme:    actor.SME(id.NewID32()),
	}
	f.uc = NewUsecase(f.loans, f.offers, mysql.NewGormUoW(db), nil)

	f.app = &loan.Application{
		LoanID:       id.NewID32(),
		SMEID:        f.sme.ProfileID,
		Amount:       decimal.RequireFromString("500000.00"),
		Currency:     loan.DefaultCurrency,
		InterestRate: decimal.RequireFromString("18.00"),
		TenureMonths: 12,
		Purpose:      "working capital",
		Frequency:    loan.FrequencyMonthly,
		Status:       loan.StatusSubmitted,
	}
	require.NoError(t, f.loans.Create(context.Background(), f.app))
	return f
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) offer(t *testing.T, lender actor.Party, r string) *OfferDTO {
	t.Helper()
	dto, err := f.uc.CreateOffer(context.Background(), CreateOfferInput{
		LoanID: f.app.LoanID, Actor: lender, Rate: rate(r), Message: "terms",
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) reload(t *testing.T) *loan.Application {
	t.Helper()
	l, err := f.loans.GetByLoanID(context.Background(), f.app.LoanID)
	require.NoError(t, err)
	return l
}

func (f *fixture) status(t *testing.T, offerID string) domain.Status {
	t.Helper()
	o, err := f.offers.GetByOfferID(context.Background(), offerID)
	require.NoError(t, err)
	return o.Status
}

func TestCreateOffer_MovesLoanUnderReview(t *testing.T) {
	f := newFixture(t)
	lender := actor.Lender(id.NewID32())

	dto := f.offer(t, lender, "16.50")

	assert.Equal(t, string(domain.StatusPending), dto.Status)
	assert.Equal(t, lender.ProfileID, dto.LenderID)
	assert.Equal(t, string(actor.KindLender), dto.ProposerType)
	assert.Empty(t, dto.ParentOfferID)
	assert.Equal(t, loan.StatusUnderReview, f.reload(t).Status)
}

func TestCreateOffer_Rules(t *testing.T) {
	ctx := context.Background()

	t.Run("sme cannot offer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: f.sme, Rate: rate("10")})
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("same lender twice in a row", func(t *testing.T) {
		f := newFixture(t)
		lender := actor.Lender(id.NewID32())
		f.offer(t, lender, "16")
		_, err := f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: lender, Rate: rate("15")})
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	t.Run("rate out of range", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: actor.Lender(id.NewID32()), Rate: rate("50.01")})
		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "proposed_rate", ve.Field)
	})

	t.Run("message too long", func(t *testing.T) {
		f := newFixture(t)
		long := make([]byte, domain.MaxMessageLen+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err := f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: actor.Lender(id.NewID32()), Rate: rate("10"), Message: string(long)})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("pitched to another lender", func(t *testing.T) {
		f := newFixture(t)
		pitched := id.NewID32()
		f.app.LenderID = &pitched
		require.NoError(t, f.loans.Save(ctx, f.app))
		_, err := f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: actor.Lender(id.NewID32()), Rate: rate("10")})
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: id.NewID32(), Actor: actor.Lender(id.NewID32()), Rate: rate("10")})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestCounterOfferScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := actor.Lender(id.NewID32())

	first := f.offer(t, lender, "16.00")

	counter, err := f.uc.CounterOffer(ctx, CounterInput{OfferID: first.OfferID, Actor: f.sme, Rate: rate("14.00"), Message: "lower please"})
	require.NoError(t, err)
	assert.Equal(t, first.OfferID, counter.ParentOfferID)
	assert.Equal(t, lender.ProfileID, counter.LenderID)
	assert.Equal(t, string(actor.KindSME), counter.ProposerType)
	assert.Equal(t, domain.StatusCountered, f.status(t, first.OfferID))

	// a countered offer can no longer be accepted
	_, err = f.uc.AcceptOffer(ctx, RespondInput{OfferID: first.OfferID, Actor: f.sme})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	// the SME cannot accept its own counter
	_, err = f.uc.AcceptOffer(ctx, RespondInput{OfferID: counter.OfferID, Actor: f.sme})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	// the lender answers with a new offer, which supersedes the counter
	second := f.offer(t, lender, "15.00")
	assert.Equal(t, counter.OfferID, second.ParentOfferID)
	assert.Equal(t, domain.StatusCountered, f.status(t, counter.OfferID))

	accepted, err := f.uc.AcceptOffer(ctx, RespondInput{OfferID: second.OfferID, Actor: f.sme})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusAccepted), accepted.Status)

	l := f.reload(t)
	assert.Equal(t, loan.StatusApproved, l.Status)
	require.NotNil(t, l.LenderID)
	assert.Equal(t, lender.ProfileID, *l.LenderID)
	assert.True(t, l.NegotiatedRate.Valid)
	assert.True(t, l.NegotiatedRate.Decimal.Equal(rate("15")))
	assert.NotNil(t, l.ApprovalDate)
}

func TestCounterOffer_Rules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lender := actor.Lender(id.NewID32())
	o := f.offer(t, lender, "16")

	_, err := f.uc.CounterOffer(ctx, CounterInput{OfferID: o.OfferID, Actor: actor.SME(id.NewID32()), Rate: rate("12")})
	assert.ErrorIs(t, err, errs.ErrForbidden, "another SME")

	_, err = f.uc.CounterOffer(ctx, CounterInput{OfferID: o.OfferID, Actor: lender, Rate: rate("12")})
	assert.ErrorIs(t, err, errs.ErrForbidden, "lender countering")

	c, err := f.uc.CounterOffer(ctx, CounterInput{OfferID: o.OfferID, Actor: f.sme, Rate: rate("12")})
	require.NoError(t, err)

	_, err = f.uc.CounterOffer(ctx, CounterInput{OfferID: c.OfferID, Actor: f.sme, Rate: rate("11")})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition, "countering own counter")

	_, err = f.uc.CounterOffer(ctx, CounterInput{OfferID: id.NewID32(), Actor: f.sme, Rate: rate("11")})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAcceptOffer_RejectsSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := actor.Lender(id.NewID32()), actor.Lender(id.NewID32()), actor.Lender(id.NewID32())

	oa := f.offer(t, a, "17")
	ob := f.offer(t, b, "16")
	oc := f.offer(t, c, "15")

	_, err := f.uc.AcceptOffer(ctx, RespondInput{OfferID: ob.OfferID, Actor: f.sme})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAccepted, f.status(t, ob.OfferID))
	assert.Equal(t, domain.StatusRejected, f.status(t, oa.OfferID))
	assert.Equal(t, domain.StatusRejected, f.status(t, oc.OfferID))

	n, err := f.offers.CountByStatus(ctx, f.app.ID, domain.StatusAccepted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// negotiation is closed for everyone
	_, err = f.uc.AcceptOffer(ctx, RespondInput{OfferID: oa.OfferID, Actor: f.sme})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: b, Rate: rate("10")})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = f.uc.CreateOffer(ctx, CreateOfferInput{LoanID: f.app.LoanID, Actor: a, Rate: rate("10")})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestAcceptCounter_ByLaneLender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender, other := actor.Lender(id.NewID32()), actor.Lender(id.NewID32())

	o := f.offer(t, lender, "16")
	c, err := f.uc.CounterOffer(ctx, CounterInput{OfferID: o.OfferID, Actor: f.sme, Rate: rate("13.75")})
	require.NoError(t, err)

	_, err = f.uc.AcceptOffer(ctx, RespondInput{OfferID: c.OfferID, Actor: other})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.uc.AcceptOffer(ctx, RespondInput{OfferID: c.OfferID, Actor: lender})
	require.NoError(t, err)

	l := f.reload(t)
	assert.Equal(t, loan.StatusApproved, l.Status)
	assert.True(t, l.NegotiatedRate.Decimal.Equal(rate("13.75")))
	assert.Equal(t, lender.ProfileID, *l.LenderID)
}

func TestRejectOffer_NoCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := actor.Lender(id.NewID32()), actor.Lender(id.NewID32())
	oa := f.offer(t, a, "17")
	ob := f.offer(t, b, "16")

	_, err := f.uc.RejectOffer(ctx, RespondInput{OfferID: oa.OfferID, Actor: a})
	assert.ErrorIs(t, err, errs.ErrForbidden, "proposer cannot reject own offer")

	dto, err := f.uc.RejectOffer(ctx, RespondInput{OfferID: oa.OfferID, Actor: f.sme})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusRejected), dto.Status)
	assert.Equal(t, domain.StatusPending, f.status(t, ob.OfferID))
	assert.Equal(t, loan.StatusUnderReview, f.reload(t).Status)

	_, err = f.uc.RejectOffer(ctx, RespondInput{OfferID: oa.OfferID, Actor: f.sme})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	// the rejected lender may open a fresh offer
	f.offer(t, a, "15")
}

func TestListThread_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := actor.Lender(id.NewID32()), actor.Lender(id.NewID32())
	oa := f.offer(t, a, "17")
	f.offer(t, b, "16")
	_, err := f.uc.CounterOffer(ctx, CounterInput{OfferID: oa.OfferID, Actor: f.sme, Rate: rate("14")})
	require.NoError(t, err)

	all, err := f.uc.ListThread(ctx, f.app.LoanID, f.sme)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, oa.OfferID, all[0].OfferID)

	lane, err := f.uc.ListThread(ctx, f.app.LoanID, a)
	require.NoError(t, err)
	require.Len(t, lane, 2)
	for _, o := range lane {
		assert.Equal(t, a.ProfileID, o.LenderID)
	}

	_, err = f.uc.ListThread(ctx, f.app.LoanID, actor.SME(id.NewID32()))
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
