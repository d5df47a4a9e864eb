package documents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ragchat-console/internal/backend"
	"ragchat-console/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu          sync.Mutex
	uploaded    []string
	processed   []string
	uploadedErr error
	procErr     error
	deleteErr   error
	deleted     []string
	onDelete    func()
}

func (f *fakeAPI) UploadedDocuments(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploaded...), f.uploadedErr
}

func (f *fakeAPI) ProcessedDocuments(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.processed...), f.procErr
}

func (f *fakeAPI) DeleteDocument(ctx context.Context, name string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, name)
	err := f.deleteErr
	onDelete := f.onDelete
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if onDelete != nil {
		onDelete()
	}
	return nil
}

func (f *fakeAPI) set(uploaded, processed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = uploaded
	f.processed = processed
}

func TestFetchPartitionsPendingAndProcessed(t *testing.T) {
	api := &fakeAPI{
		uploaded:  []string{"a.pdf", "b.pdf", "c.pdf"},
		processed: []string{"b.pdf"},
	}
	r := NewReconciler(api, logger.Nop())

	state, _ := r.State()
	assert.Equal(t, StateIdle, state)

	require.NoError(t, r.Fetch(context.Background()))

	state, stateErr := r.State()
	assert.Equal(t, StateReady, state)
	assert.NoError(t, stateErr)

	snap := r.Snapshot()
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, snap.Pending)
	assert.Equal(t, []string{"b.pdf"}, snap.Processed)
	assert.Len(t, snap.Pending, 2)
	assert.Len(t, snap.Processed, 1)

	// pending = uploaded − processed, element by element.
	processedSet := toSet(snap.Processed)
	uploadedSet := toSet(snap.Uploaded)
	for _, d := range snap.Uploaded {
		_, inProcessed := processedSet[d]
		inPending := false
		for _, p := range snap.Pending {
			if p == d {
				inPending = true
			}
		}
		assert.Equal(t, !inProcessed, inPending, "doc %s", d)
	}
	for _, d := range snap.Pending {
		_, ok := uploadedSet[d]
		assert.True(t, ok, "pending doc %s must be uploaded", d)
	}
}

func TestFetchFailureKeepsPreviousView(t *testing.T) {
	api := &fakeAPI{
		uploaded:  []string{"a.pdf", "b.pdf"},
		processed: []string{"b.pdf"},
	}
	r := NewReconciler(api, logger.Nop())
	require.NoError(t, r.Fetch(context.Background()))

	// One of the two reads failing errors the whole view, no partial update.
	api.mu.Lock()
	api.uploaded = []string{"a.pdf", "b.pdf", "new.pdf"}
	api.procErr = errors.New("boom")
	api.mu.Unlock()

	err := r.Fetch(context.Background())
	require.Error(t, err)

	state, stateErr := r.State()
	assert.Equal(t, StateError, state)
	assert.Error(t, stateErr)

	snap := r.Snapshot()
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, snap.Uploaded, "previous sets stay visible")
	assert.Equal(t, []string{"b.pdf"}, snap.Processed)

	// Retry after the backend recovers: Error -> Loading -> Ready.
	api.mu.Lock()
	api.procErr = nil
	api.mu.Unlock()
	require.NoError(t, r.Fetch(context.Background()))
	state, _ = r.State()
	assert.Equal(t, StateReady, state)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "new.pdf"}, r.Snapshot().Uploaded)
}

func TestFetchSessionExpiredErrorsView(t *testing.T) {
	api := &fakeAPI{
		uploaded:    []string{"a.pdf"},
		uploadedErr: backend.ErrSessionExpired,
		processed:   []string{},
	}
	r := NewReconciler(api, logger.Nop())

	err := r.Fetch(context.Background())
	assert.ErrorIs(t, err, backend.ErrSessionExpired)

	state, _ := r.State()
	assert.Equal(t, StateError, state)
}

func TestDeleteForcesResync(t *testing.T) {
	api := &fakeAPI{
		uploaded:  []string{"a.pdf", "b.pdf", "c.pdf"},
		processed: []string{"b.pdf"},
	}
	// The backend forgets the processed entry once deleted, but the file
	// stays in the uploaded listing; the resync view must reflect exactly that.
	api.onDelete = func() {
		api.set([]string{"a.pdf", "b.pdf", "c.pdf"}, []string{})
	}

	r := NewReconciler(api, logger.Nop())
	require.NoError(t, r.Fetch(context.Background()))

	require.NoError(t, r.Delete(context.Background(), "b.pdf"))

	assert.Equal(t, []string{"b.pdf"}, api.deleted)
	snap := r.Snapshot()
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, snap.Pending)
	assert.Empty(t, snap.Processed)
}

func TestDeleteRequiresProcessedMembership(t *testing.T) {
	api := &fakeAPI{
		uploaded:  []string{"a.pdf", "b.pdf"},
		processed: []string{"b.pdf"},
	}
	r := NewReconciler(api, logger.Nop())
	require.NoError(t, r.Fetch(context.Background()))

	err := r.Delete(context.Background(), "a.pdf")
	assert.ErrorIs(t, err, ErrNotProcessed)
	assert.Empty(t, api.deleted, "no removal request may be issued")
}

func TestDeleteFailureLeavesSetsUntouched(t *testing.T) {
	api := &fakeAPI{
		uploaded:  []string{"a.pdf", "b.pdf"},
		processed: []string{"b.pdf"},
		deleteErr: &backend.APIError{StatusCode: 500, Message: "boom"},
	}
	r := NewReconciler(api, logger.Nop())
	require.NoError(t, r.Fetch(context.Background()))

	err := r.Delete(context.Background(), "b.pdf")
	require.Error(t, err)

	snap := r.Snapshot()
	assert.Equal(t, []string{"b.pdf"}, snap.Processed)
	assert.Equal(t, []string{"a.pdf"}, snap.Pending)
}

// blockingAPI lets the test hold a fetch open while newer fetches settle.
type blockingAPI struct {
	fakeAPI
	block   chan struct{} // closed to release blocked calls
	blocked chan struct{} // receives one signal per blocked call
	blockN  int32
	mu2     sync.Mutex
	calls   int32
}

func (b *blockingAPI) UploadedDocuments(ctx context.Context) ([]string, error) {
	b.maybeBlock()
	return b.fakeAPI.UploadedDocuments(ctx)
}

func (b *blockingAPI) ProcessedDocuments(ctx context.Context) ([]string, error) {
	b.maybeBlock()
	return b.fakeAPI.ProcessedDocuments(ctx)
}

func (b *blockingAPI) maybeBlock() {
	b.mu2.Lock()
	b.calls++
	shouldBlock := b.calls <= b.blockN
	b.mu2.Unlock()
	if shouldBlock {
		b.blocked <- struct{}{}
		<-b.block
	}
}

func TestStaleFetchCannotOverwriteNewerResult(t *testing.T) {
	api := &blockingAPI{
		block:   make(chan struct{}),
		blocked: make(chan struct{}, 2),
		blockN:  2, // the first fetch's two reads hang until released
	}
	api.set([]string{"old.pdf"}, []string{})

	r := NewReconciler(api, logger.Nop())

	fetchA := make(chan error, 1)
	go func() {
		fetchA <- r.Fetch(context.Background())
	}()

	// Wait until both of fetch A's reads are parked, then change the world
	// and let fetch B resolve first.
	for i := 0; i < 2; i++ {
		select {
		case <-api.blocked:
		case <-time.After(2 * time.Second):
			t.Fatal("fetch A never reached the backend")
		}
	}

	api.set([]string{"new.pdf"}, []string{"new.pdf"})
	require.NoError(t, r.Fetch(context.Background()))
	assert.Equal(t, []string{"new.pdf"}, r.Snapshot().Processed)

	// Release A; its stale result must be discarded, not applied.
	api.set([]string{"old.pdf"}, []string{})
	close(api.block)
	require.NoError(t, <-fetchA)

	snap := r.Snapshot()
	assert.Equal(t, []string{"new.pdf"}, snap.Uploaded, "stale fetch overwrote a newer result")
	assert.Equal(t, []string{"new.pdf"}, snap.Processed)

	state, _ := r.State()
	assert.Equal(t, StateReady, state)
}
