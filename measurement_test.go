package corovm

import "testing"

func TestMeasurementPacksFields(t *testing.T) {
	m := packMeasurement(3, 7)
	if got := m.enqueued(); got != 3 {
		t.Errorf("enqueued() = %d, want 3", got)
	}
	if got := m.scheduled(); got != 7 {
		t.Errorf("scheduled() = %d, want 7", got)
	}
	if got := m.blocked(); got != 4 {
		t.Errorf("blocked() = %d, want 4", got)
	}
}

func TestMeasurementSaturates(t *testing.T) {
	m := packMeasurement(-1, 1<<40)
	if got := m.enqueued(); got != 0 {
		t.Errorf("enqueued() for a negative input = %d, want 0", got)
	}
	if got := m.scheduled(); got == 0 {
		t.Error("scheduled() for a huge input saturated to 0, want max uint32")
	}
}

func TestMeasurementTotalOrder(t *testing.T) {
	lo := packMeasurement(1, 0)
	hi := packMeasurement(1, 1)
	if !lo.Less(hi) {
		t.Error("lower scheduled count at equal enqueued count should compare Less")
	}
	if lo.Equal(hi) {
		t.Error("distinct measurements should not compare Equal")
	}
	if !packMeasurement(1, 1).Equal(packMeasurement(1, 1)) {
		t.Error("identical measurements should compare Equal")
	}
}
