package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenario files found")

	for _, file := range files {
		sc, err := LoadScenario(file)
		require.NoError(t, err, "scenario %s", file)

		t.Run(sc.Name, func(t *testing.T) {
			RunWithGolden(t, sc)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/offline_scan_reconcile.yaml")
	require.NoError(t, err)

	assert.Equal(t, "offline_scan_reconcile", sc.Name)
	assert.NotEmpty(t, sc.Description)
	require.Len(t, sc.Packages, 1)
	assert.True(t, sc.Packages[0].Cached)
	assert.NotEmpty(t, sc.Steps)
	require.NotNil(t, sc.Asserts)
	assert.Equal(t, "delivered", sc.Asserts.Authority["PKG-AB12-20240101"])
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
}

func TestSeqTokens(t *testing.T) {
	g := &seqTokens{}
	assert.Equal(t, "tok-0001", g.Generate())
	assert.Equal(t, "tok-0002", g.Generate())
}
