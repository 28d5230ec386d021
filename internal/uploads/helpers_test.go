package uploads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/algonomic-backend/internal/storage/disk"
	"github.com/Vasu1712/algonomic-backend/internal/storage/memory"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newDiskStore(t *testing.T, opts ...Option) (*Store, *disk.Blobs, *memory.UploadIndex) {
	t.Helper()
	blobs, err := disk.NewBlobs(t.TempDir())
	require.NoError(t, err)
	index := memory.NewUploadIndex()
	return NewStore(blobs, index, opts...), blobs, index
}

// failingBlobs fails the configured operations.
type failingBlobs struct {
	Blobs
	putErr error
	getErr error
}

func (f *failingBlobs) Put(ctx context.Context, key string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Blobs.Put(ctx, key, data)
}

func (f *failingBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Blobs.Get(ctx, key)
}

var errDiskFull = errors.New("disk full")
