package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベル値のメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name, label, value string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m
				}
			}
		}
	}
	return nil
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DuplicateRegistration_Panics は同じレジストリへの二重登録を検出することを検証する。
func TestNewCollector_DuplicateRegistration_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}

// TestRecordSignIn_CountsByResult は結果ラベルごとにカウントされることを検証する。
func TestRecordSignIn_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignIn("valid")
	c.RecordSignIn("valid")
	c.RecordSignIn("invalid")

	valid := findMetric(t, reg, "keyhole_signin_attempts_total", "result", "valid")
	if valid == nil {
		t.Fatal("keyhole_signin_attempts_total{result=valid} not found")
	}
	if got := valid.GetCounter().GetValue(); got != 2 {
		t.Errorf("valid = %v, want 2", got)
	}

	invalid := findMetric(t, reg, "keyhole_signin_attempts_total", "result", "invalid")
	if invalid == nil || invalid.GetCounter().GetValue() != 1 {
		t.Errorf("invalid = %v, want 1", invalid)
	}
}

// TestRecordGateDecision_CountsByDecision は判定ラベルごとにカウントされることを検証する。
func TestRecordGateDecision_CountsByDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGateDecision("allowed")
	c.RecordGateDecision("anonymous")
	c.RecordGateDecision("anonymous")

	m := findMetric(t, reg, "keyhole_auth_gate_decisions_total", "decision", "anonymous")
	if m == nil {
		t.Fatal("keyhole_auth_gate_decisions_total{decision=anonymous} not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("anonymous = %v, want 2", got)
	}
}

// TestObserveHash_RecordsHistogram はハッシュ所要時間がヒストグラムに記録されることを検証する。
func TestObserveHash_RecordsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveHash("verify", 30*time.Millisecond)
	c.ObserveHash("verify", 70*time.Millisecond)

	m := findMetric(t, reg, "keyhole_password_hash_duration_seconds", "op", "verify")
	if m == nil {
		t.Fatal("keyhole_password_hash_duration_seconds{op=verify} not found")
	}
	h := m.GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if sum := h.GetSampleSum(); sum < 0.099 || sum > 0.101 {
		t.Errorf("sample sum = %v, want ~0.1", sum)
	}
}
