package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGateway(t *testing.T) {
	before := testutil.ToFloat64(GatewayCallsTotal.WithLabelValues("transfer", "failure"))
	ObserveGateway("transfer", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(GatewayCallsTotal.WithLabelValues("transfer", "failure"))
	assert.Equal(t, before+1, after)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}

func TestHandler_ExposesNamespace(t *testing.T) {
	EscrowTransitionsTotal.WithLabelValues("active").Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sme_escrow_escrow_transitions_total"))
}
