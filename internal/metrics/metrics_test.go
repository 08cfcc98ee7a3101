package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesTotal(t *testing.T) {
	before := testutil.ToFloat64(LinesTotal.WithLabelValues("web", OutcomeParsed))
	LinesTotal.WithLabelValues("web", OutcomeParsed).Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(LinesTotal.WithLabelValues("web", OutcomeParsed)))
}

func TestWriteTextfile(t *testing.T) {
	FilesFailed.Inc()
	path := filepath.Join(t.TempDir(), "lognorm.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lognorm_files_failed_total")
}

func TestWriteTextfile_BadPath(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "out.prom"))
	assert.Error(t, err)
}
