package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFingerprintDeterministic(t *testing.T) {
	op := Operator{ID: "r-17", Name: "Test Rider", Role: RoleRider}

	fp1, err := ScanFingerprint("PKG-AB12-20240101", ActionDeliver, op)
	require.NoError(t, err)
	fp2, err := ScanFingerprint("PKG-AB12-20240101", ActionDeliver, op)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64) // hex sha256
}

func TestScanFingerprintDistinguishesInputs(t *testing.T) {
	op := Operator{ID: "r-17", Role: RoleRider}

	base, err := ScanFingerprint("PKG-AB12-20240101", ActionDeliver, op)
	require.NoError(t, err)

	otherCode, err := ScanFingerprint("PKG-CD34-20240101", ActionDeliver, op)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherCode)

	otherAction, err := ScanFingerprint("PKG-AB12-20240101", ActionCollect, op)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherAction)

	otherOperator, err := ScanFingerprint("PKG-AB12-20240101", ActionDeliver, Operator{ID: "r-18", Role: RoleRider})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherOperator)
}

func TestScanFingerprintIgnoresOperatorName(t *testing.T) {
	// The display name is not part of the scan's identity; only the id and
	// role are. A renamed operator is still the same operator.
	a, err := ScanFingerprint("PKG-AB12-20240101", ActionDeliver, Operator{ID: "r-17", Name: "Old Name", Role: RoleRider})
	require.NoError(t, err)
	b, err := ScanFingerprint("PKG-AB12-20240101", ActionDeliver, Operator{ID: "r-17", Name: "New Name", Role: RoleRider})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScanFingerprintUnicodeForms(t *testing.T) {
	// Canonical JSON NFC-normalizes strings, so the two Unicode spellings
	// of the same operator id hash identically.
	nfc := Operator{ID: "rené", Role: RoleAgent}
	nfd := Operator{ID: "rené", Role: RoleAgent}

	a, err := ScanFingerprint("PKG-AB12-20240101", ActionCollect, nfc)
	require.NoError(t, err)
	b, err := ScanFingerprint("PKG-AB12-20240101", ActionCollect, nfd)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	out, err := marshalCanonical(map[string]any{
		"zulu":  "z",
		"alpha": "a",
		"mike":  int64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","mike":3,"zulu":"z"}`, string(out))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	out, err := marshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(out))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := marshalCanonical(map[string]any{"lat": 1.25})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := marshalCanonical(map[string]any{"geo": nil})
	require.Error(t, err)
}

func TestScanFingerprintIndependentOfTime(t *testing.T) {
	// Two taps of the same scan milliseconds apart must coalesce, so the
	// fingerprint cannot depend on anything time-derived.
	op := Operator{ID: "w-3", Role: RoleWarehouse}

	a, err := ScanFingerprint("PKG-AB12-20240101", ActionProcess, op)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	b, err := ScanFingerprint("PKG-AB12-20240101", ActionProcess, op)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
