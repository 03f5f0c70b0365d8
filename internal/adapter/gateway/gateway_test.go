package gateway

import (
	"context"
	"testing"

	"sme-escrow/internal/adapter/gateway/mockgw"
	"sme-escrow/internal/domain/payment"
	"sme-escrow/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsByProvider(t *testing.T) {
	g, err := New(Settings{Provider: ProviderMock})
	require.NoError(t, err)
	assert.NotNil(t, g)

	_, err = New(Settings{Provider: ProviderPaystack})
	assert.Error(t, err, "paystack without a key must be refused")

	g, err = New(Settings{Provider: ProviderPaystack, SecretKey: "sk_live_x"})
	require.NoError(t, err)
	assert.NotNil(t, g)

	_, err = New(Settings{Provider: "stripe"})
	assert.Error(t, err)
}

func TestInstrument_CountsCalls(t *testing.T) {
	mock := mockgw.New("")
	g := Instrument(mock)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues(payment.OpInitialize, "success"))
	_, err := g.InitializeTransaction(ctx, payment.ChargeRequest{Amount: decimal.NewFromInt(1), Reference: "ESCROW_M"})
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues(payment.OpInitialize, "success")))

	mock.FailOn(payment.OpRecipient, "down")
	beforeFail := testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues(payment.OpRecipient, "failure"))
	_, err = g.CreatePayoutRecipient(ctx, payment.RecipientRequest{})
	require.Error(t, err)
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(metrics.GatewayCallsTotal.WithLabelValues(payment.OpRecipient, "failure")))
}
