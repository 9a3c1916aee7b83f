package downloader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.json")

	ledger, err := LoadLedger(path)
	require.NoError(t, err)
	assert.Zero(t, ledger.Len())

	require.NoError(t, ledger.Add("7100000000000000001"))
	require.NoError(t, ledger.Add("7100000000000000002"))
	require.NoError(t, ledger.Add("7100000000000000001")) // duplicate

	reloaded, err := LoadLedger(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Has("7100000000000000001"))
	assert.True(t, reloaded.Has("7100000000000000002"))
	assert.False(t, reloaded.Has("7100000000000000003"))
}

func TestLedgerFileIsFlatJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.json")

	ledger, err := LoadLedger(path)
	require.NoError(t, err)
	require.NoError(t, ledger.Add("42"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	assert.Equal(t, []string{"42"}, ids)
}

func TestLoadLedgerMissingFile(t *testing.T) {
	ledger, err := LoadLedger(filepath.Join(t.TempDir(), "nope", "downloaded.json"))
	require.NoError(t, err)
	assert.Zero(t, ledger.Len())
}
