package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhan520/entwine/internal/pool"
)

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestPreviewComputesBounds(t *testing.T) {
	path := writeCSV(t, "0,0,0\n1,2,3\n-1,4,0\n")
	prev, err := CSVExecutor{}.Preview(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), prev.PointCount)
	assert.Equal(t, -1.0, prev.Bounds.Min.X)
	assert.Equal(t, 4.0, prev.Bounds.Max.Y)
}

func TestDecodeBatches(t *testing.T) {
	path := writeCSV(t, "0,0,0\n1,1,1\n2,2,2\n3,3,3\n")
	var batches [][]int
	p := pool.New(0)
	err := CSVExecutor{}.Decode(context.Background(), path, p, 2, func(cells []*pool.Cell) error {
		batches = append(batches, []int{len(cells)})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2}, {2}}, batches)
}
