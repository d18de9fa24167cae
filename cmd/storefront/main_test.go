package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPriceFromStdin(t *testing.T) {
	out, err := runRoot(t, `[
		{"id":"rose","kind":"canvas","category":"standard","size":"S","qty":3},
		{"id":"tee","kind":"product","size":"L","qty":2,"price":"45"}
	]`, "price")
	require.NoError(t, err)

	var totals cart.Totals
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.Equal(t, "640", totals.Total.String())
}

func TestPriceFromSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"items":[{"id":"p","kind":"canvas","category":"pair","size":"M","qty":1}]}`), 0o600))

	out, err := runRoot(t, "", "price", path)
	require.NoError(t, err)

	var totals cart.Totals
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.Equal(t, "390", totals.Total.String())
}

func TestPriceRejectsInvalidItems(t *testing.T) {
	_, err := runRoot(t, `[{"id":"tee","kind":"product","size":"L","qty":1}]`, "price")
	require.ErrorIs(t, err, cart.ErrMissingPrice)

	_, err = runRoot(t, `not json`, "price")
	require.Error(t, err)
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("CART_DB_DSN", "")
	_, err := runRoot(t, "", "migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "storage.dsn")
}
