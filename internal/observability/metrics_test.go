package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordDecision(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("APPROVED")
	m.RecordDecision("APPROVED")
	m.RecordDecision("AWAITING_APPROVAL")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.decisions.WithLabelValues("APPROVED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.decisions.WithLabelValues("AWAITING_APPROVAL")))
}

func TestMetrics_RuleWritesAndResolutions(t *testing.T) {
	m := NewMetrics()

	m.RecordRuleWrite()
	m.RecordApprovalResolution("rejected")
	m.ObserveEvaluation(15 * time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ruleWrites))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.approvalResolution.WithLabelValues("rejected")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordDecision("ERROR")
		m.RecordRuleWrite()
		m.RecordApprovalResolution("approved")
		m.ObserveEvaluation(time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision("REJECTED")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `procurement_decisions_total{status="REJECTED"} 1`)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"text debug", "DEBUG", "text", false},
		{"invalid level", "verbose", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
