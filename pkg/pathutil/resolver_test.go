package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, heading, qualifier string
		want                      string
	}{
		{"kasse.csv", "_All", QualifierImport, "kasse_All_Import.csv"},
		{"/data/2020/kasse.csv", "_vom_2020-07-01_bis_2020-07-31", QualifierCollective,
			"/data/2020/kasse_vom_2020-07-01_bis_2020-07-31_Sammelbuchungen.csv"},
		{"export", "_All", QualifierVouchers, "export_All_Gutscheine"},
		{"dir.v2/kasse.txt", "_All", QualifierTransactions, "dir.v2/kasse_All_Transaktionen.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.input, tt.heading, tt.qualifier))
		})
	}
}

func TestPathResolver_GetMonthFilePath(t *testing.T) {
	p := New(Config{BeancountRoot: "/books"})

	got, err := p.GetMonthFilePath("2020-07")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/books", "2020", "2020-07.beancount"), got)

	for _, bad := range []string{"2020", "20-07", "2020-7", "2020-07-01"} {
		_, err := p.GetMonthFilePath(bad)
		assert.Error(t, err, bad)
	}

	assert.Empty(t, p.GetDatabasePath())
	assert.Equal(t, "/books", p.GetBeancountRoot())
}

func TestPathResolver_EnsureParentDir(t *testing.T) {
	root := t.TempDir()
	p := New(Config{BeancountRoot: root, DatabasePath: filepath.Join(root, "journal", "export.db")})

	require.NoError(t, p.EnsureParentDir(p.GetDatabasePath()))
	assert.True(t, p.FileExists(filepath.Join(root, "journal")))

	file := filepath.Join(root, "journal", "export.db")
	assert.False(t, p.FileExists(file))
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.True(t, p.FileExists(file))
}
