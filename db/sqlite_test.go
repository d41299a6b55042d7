package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oxhq/clicov/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Connect(":memory:", false)
	require.NoError(t, err)
	return gdb
}

func testRun(cliPath string, createdAt time.Time) *models.Run {
	return &models.Run{
		CreatedAt:      createdAt,
		CLIPath:        cliPath,
		TestDir:        "./test",
		OverallTotal:   6,
		OverallTested:  2,
		OverallPercent: 33.33,
		Report:         datatypes.JSON([]byte(`{"summary":{}}`)),
		WarningCount:   1,
	}
}

func TestConnect_FileDSN(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "history.db")
	gdb, err := Connect(dsn, false)
	require.NoError(t, err, "missing parent directories should be created")
	require.NoError(t, SaveRun(gdb, testRun("./cli.mjs", time.Now())))
}

func TestSaveRun_AssignsID(t *testing.T) {
	gdb := testDB(t)

	run := testRun("./cli.mjs", time.Now())
	require.NoError(t, SaveRun(gdb, run))
	assert.Len(t, run.ID, 20)

	fetched, err := RecentRuns(gdb, 1)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, run.ID, fetched[0].ID)
	assert.Equal(t, 2, fetched[0].OverallTested)
	assert.JSONEq(t, `{"summary":{}}`, string(fetched[0].Report))
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	gdb := testDB(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, SaveRun(gdb, testRun("./cli.mjs", base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := RecentRuns(gdb, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i := 1; i < len(runs); i++ {
		assert.False(t, runs[i].CreatedAt.After(runs[i-1].CreatedAt),
			"runs must be ordered newest first")
	}

	// limit <= 0 falls back to the default.
	runs, err = RecentRuns(gdb, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestPreviousRun(t *testing.T) {
	gdb := testDB(t)

	base := time.Now().Add(-time.Hour)
	first := testRun("./a.mjs", base)
	second := testRun("./a.mjs", base.Add(time.Minute))
	second.OverallPercent = 50
	unrelated := testRun("./b.mjs", base.Add(30*time.Second))
	for _, run := range []*models.Run{first, second, unrelated} {
		require.NoError(t, SaveRun(gdb, run))
	}

	prev, err := PreviousRun(gdb, second)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, first.ID, prev.ID, "predecessor must share the input pair")

	// The oldest run for a pair has no predecessor.
	prev, err = PreviousRun(gdb, first)
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestLastRunFor(t *testing.T) {
	gdb := testDB(t)

	base := time.Now().Add(-time.Hour)
	older := testRun("./a.mjs", base)
	newer := testRun("./a.mjs", base.Add(time.Minute))
	newer.OverallTested = 5
	other := testRun("./b.mjs", base.Add(2*time.Minute))
	for _, run := range []*models.Run{older, newer, other} {
		require.NoError(t, SaveRun(gdb, run))
	}

	got, err := LastRunFor(gdb, "./a.mjs", "./test")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, 5, got.OverallTested)

	// No match is not an error.
	got, err = LastRunFor(gdb, "./missing.mjs", "./test")
	require.NoError(t, err)
	assert.Nil(t, got)
}
