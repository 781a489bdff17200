package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/store"
)

// OpenStore opens a real SQLite store in a test temp directory and closes
// it when the test ends. Tests run against the real substrate; the store is
// cheap enough that mocking it would only hide bugs.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "scanflow.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

// SnapshotFixture builds a plausible package snapshot for tests.
func SnapshotFixture(code string, state model.PackageState, deliveryType model.DeliveryType) model.Snapshot {
	return model.Snapshot{
		Code:         code,
		State:        state,
		DeliveryType: deliveryType,
		Sender:       model.Party{Name: "Amina Odhiambo", Phone: "+254700000001"},
		Receiver:     model.Party{Name: "Brian Mwangi", Phone: "+254700000002"},
		Route:        "Nairobi CBD - Westlands",
		CostCents:    25000,
		CreatedAt:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// MetadataFixture builds scan metadata with a fixed timestamp.
func MetadataFixture() model.Metadata {
	return model.Metadata{
		Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Device:    "test-device",
	}
}

// OperatorFixture builds an operator with the given role.
func OperatorFixture(role model.Role) model.Operator {
	return model.Operator{ID: "op-1", Name: "Test Operator", Role: role}
}
