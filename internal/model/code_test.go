package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already canonical", raw: "PKG-AB12-20240101", want: "PKG-AB12-20240101"},
		{name: "lowercase", raw: "pkg-ab12-20240101", want: "PKG-AB12-20240101"},
		{name: "surrounding whitespace", raw: "  PKG-AB12-20240101\n", want: "PKG-AB12-20240101"},
		{name: "mixed case and space", raw: " Pkg-Ab12-20240101 ", want: "PKG-AB12-20240101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCode(tt.raw))
		})
	}
}

func TestNormalizeCodeUnicodeForms(t *testing.T) {
	// NFD and NFC spellings of the same text normalize to the same code.
	// QR decoders on different platforms disagree about the form.
	nfc := "PKG-CAFÉ-20240101"       // É as a single code point
	nfd := "PKG-CAFÉ-20240101"      // E followed by combining acute
	assert.Equal(t, NormalizeCode(nfc), NormalizeCode(nfd))
}

func TestValidateCode(t *testing.T) {
	valid := []string{
		"PKG-AB12-20240101",
		"PKG-7-20231231",
		"PKG-XYZ999-20240229", // leap day
	}
	for _, code := range valid {
		t.Run(code, func(t *testing.T) {
			require.NoError(t, ValidateCode(code))
		})
	}

	invalid := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "wrong prefix", code: "PKT-AB12-20240101"},
		{name: "missing date", code: "PKG-AB12"},
		{name: "short date", code: "PKG-AB12-2024010"},
		{name: "impossible month", code: "PKG-AB12-20241301"},
		{name: "impossible day", code: "PKG-AB12-20240132"},
		{name: "lowercase id", code: "PKG-ab12-20240101"},
		{name: "trailing garbage", code: "PKG-AB12-20240101X"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateCode(tt.code))
		})
	}
}

func TestValidateCodeAfterNormalize(t *testing.T) {
	// The usual pipeline: operator input passes through NormalizeCode first.
	code := NormalizeCode("  pkg-ab12-20240101 ")
	require.NoError(t, ValidateCode(code))
}
