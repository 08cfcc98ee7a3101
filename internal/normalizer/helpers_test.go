package normalizer_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/model"
	"github.com/telhawk-systems/lognorm/internal/normalizer"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(opts ...normalizer.Option) *normalizer.Normalizer {
	seq := 0
	base := []normalizer.Option{
		normalizer.WithClock(func() time.Time { return fixedNow }),
		normalizer.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("rec-%d", seq)
		}),
		normalizer.WithLogger(logging.Discard()),
	}
	return normalizer.New(append(base, opts...)...)
}

func normalize(t *testing.T, content string, format model.Format) normalizer.Result {
	t.Helper()
	return newTestNormalizer().Normalize(context.Background(), content, format)
}
