package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueryer struct {
	sqlx.ExtContext
	queries []string
	args    [][]interface{}
}

func (r *recordingQueryer) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.queries = append(r.queries, query)
	r.args = append(r.args, append([]interface{}(nil), args...))
	return nil, nil
}

func (r *recordingQueryer) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func (r *recordingQueryer) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func TestBatchInserter_FlushesInBatches(t *testing.T) {
	rec := &recordingQueryer{}
	bi := newBatchInserter(rec, "INSERT INTO t (a, b)", 2, 2)
	ctx := context.Background()

	require.NoError(t, bi.Add(ctx, 1, "x"))
	assert.Empty(t, rec.queries)
	require.NoError(t, bi.Add(ctx, 2, "y"))
	require.Len(t, rec.queries, 1)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2), ($3, $4)", rec.queries[0])
	assert.Equal(t, []interface{}{1, "x", 2, "y"}, rec.args[0])

	require.NoError(t, bi.Add(ctx, 3, "z"))
	require.NoError(t, bi.Flush(ctx))
	require.Len(t, rec.queries, 2)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", rec.queries[1])

	require.NoError(t, bi.Flush(ctx))
	assert.Len(t, rec.queries, 2, "empty flush is a no-op")

	assert.Error(t, bi.Add(ctx, 1))
}
