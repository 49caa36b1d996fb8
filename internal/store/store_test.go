package store

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + nuid.Next() + "?mode=memory&cache=shared"
	s, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	in := Run{
		ID:           "run-1",
		CreatedAt:    created,
		Observations: 12,
		Students:     4,
		Items:        3,
		Iterations:   9,
		Converged:    true,
		Reliability:  0.812,
		Report:       []byte(`{"reliability":0.812}`),
	}
	require.NoError(t, s.Save(ctx, in))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// ids are unique
	assert.Error(t, s.Save(ctx, in))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, Run{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Report:    []byte(`{}`),
		}))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Nil(t, runs[0].Report)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("oracle"), "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT $1, $2 WHERE x = $3", pg.rebind("SELECT ?, ? WHERE x = ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}
