package persistence

import (
	"context"
	"fmt"
	"strings"
)

// batchInserter accumulates rows and writes them with multi-row INSERT statements.
type batchInserter struct {
	q           queryer
	query       string
	batchSize   int
	fieldsCount int
	values      []interface{}
	rowCount    int
}

func newBatchInserter(q queryer, baseQuery string, fieldsCount, batchSize int) *batchInserter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &batchInserter{
		q:           q,
		query:       baseQuery,
		batchSize:   batchSize,
		fieldsCount: fieldsCount,
		values:      make([]interface{}, 0, batchSize*fieldsCount),
	}
}

func (bi *batchInserter) Add(ctx context.Context, rowValues ...interface{}) error {
	if len(rowValues) != bi.fieldsCount {
		return fmt.Errorf("expected %d fields, got %d", bi.fieldsCount, len(rowValues))
	}
	bi.values = append(bi.values, rowValues...)
	bi.rowCount++
	if bi.rowCount >= bi.batchSize {
		return bi.Flush(ctx)
	}
	return nil
}

func (bi *batchInserter) Flush(ctx context.Context) error {
	if bi.rowCount == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(bi.query)
	sb.WriteString(" VALUES ")
	for i := 0; i < bi.rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := 0; j < bi.fieldsCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*bi.fieldsCount+j+1)
		}
		sb.WriteByte(')')
	}

	if _, err := bi.q.ExecContext(ctx, sb.String(), bi.values...); err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}

	bi.values = bi.values[:0]
	bi.rowCount = 0
	return nil
}
