package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeList(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	schools := writeList(t, dir, "schools.txt", "HEC Paris\n\n  ESSEC Business School  \n")
	companies := writeList(t, dir, "companies.txt", "Target Corp\n")

	core, observed := observer.New(zapcore.WarnLevel)
	lists := Load(Files{
		Schools:       schools,
		Companies:     companies,
		FoodRetailers: filepath.Join(dir, "missing.txt"),
	}, zap.New(core))

	require.Equal(t, []string{"HEC Paris", "ESSEC Business School"}, lists.Schools)
	require.Equal(t, []string{"Target Corp"}, lists.Companies)
	require.Empty(t, lists.FoodRetailers)

	entries := observed.All()
	require.Len(t, entries, 1)
	require.Equal(t, "food-retailers", entries[0].ContextMap()["list"])
}

func TestContains(t *testing.T) {
	t.Parallel()

	list := []string{"Carrefour", "Target Corp"}

	tests := []struct {
		name   string
		input  string
		expect bool
	}{
		{name: "exact", input: "Carrefour", expect: true},
		{name: "entry inside name", input: "Carrefour France SAS", expect: true},
		{name: "name inside entry", input: "target", expect: true},
		{name: "case insensitive", input: "TARGET CORP", expect: true},
		{name: "no match", input: "Auchan", expect: false},
		{name: "empty", input: "  ", expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expect, Contains(list, tt.input))
		})
	}
}
