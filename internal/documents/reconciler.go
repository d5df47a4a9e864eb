package documents

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ragchat-console/internal/pkg/logger"
)

var ErrNotProcessed = errors.New("documents: document is not in the processed set")

// State of the reconciler's document view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// API is the slice of the backend the reconciler needs.
type API interface {
	UploadedDocuments(ctx context.Context) ([]string, error)
	ProcessedDocuments(ctx context.Context) ([]string, error)
	DeleteDocument(ctx context.Context, name string) error
}

// Snapshot is a consistent view of the document sets after a successful
// reconciliation. Pending is derived, never stored: uploaded minus processed.
type Snapshot struct {
	Uploaded  []string
	Processed []string
	Pending   []string
}

// Reconciler tracks which uploaded documents have been ingested into the
// retrieval index. Both identifier sets are fetched concurrently and joined
// all-or-nothing: a failure on either read leaves the previous view intact.
//
// Every fetch carries a monotonic generation; a result is applied only when
// it is newer than the last applied one, so a slow stale fetch can never
// overwrite the outcome of a newer fetch or of a post-delete resync.
type Reconciler struct {
	mu         sync.Mutex
	api        API
	log        logger.ILogger
	state      State
	lastErr    error
	uploaded   map[string]struct{}
	processed  map[string]struct{}
	nextGen    uint64
	appliedGen uint64
}

func NewReconciler(api API, log logger.ILogger) *Reconciler {
	return &Reconciler{
		api:       api,
		log:       log,
		state:     StateIdle,
		uploaded:  map[string]struct{}{},
		processed: map[string]struct{}{},
	}
}

// State returns the current lifecycle state and, in StateError, the error
// that put it there.
func (r *Reconciler) State() (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.lastErr
}

// Snapshot returns the last successfully reconciled view, sorted for display.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Uploaded:  setToSorted(r.uploaded),
		Processed: setToSorted(r.processed),
	}
	for _, doc := range snap.Uploaded {
		if _, ok := r.processed[doc]; !ok {
			snap.Pending = append(snap.Pending, doc)
		}
	}
	return snap
}

// Fetch reads both identifier sets concurrently and applies them atomically.
// Overlapping fetches are allowed; the generation guard decides which result
// becomes visible.
func (r *Reconciler) Fetch(ctx context.Context) error {
	r.mu.Lock()
	r.nextGen++
	gen := r.nextGen
	r.state = StateLoading
	r.mu.Unlock()

	var (
		wg        sync.WaitGroup
		uploaded  []string
		processed []string
		errUp     error
		errProc   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		uploaded, errUp = r.api.UploadedDocuments(ctx)
	}()
	go func() {
		defer wg.Done()
		processed, errProc = r.api.ProcessedDocuments(ctx)
	}()
	wg.Wait()

	err := errUp
	if err == nil {
		err = errProc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen <= r.appliedGen {
		// A newer fetch already settled; this result is stale either way.
		r.log.Debug("documents", "discarding stale fetch result", map[string]interface{}{
			"generation": gen,
			"applied":    r.appliedGen,
		})
		return err
	}
	r.appliedGen = gen

	if err != nil {
		r.state = StateError
		r.lastErr = err
		return err
	}

	r.uploaded = toSet(uploaded)
	r.processed = toSet(processed)
	r.state = StateReady
	r.lastErr = nil
	return nil
}

// Delete removes a processed document and forces a resynchronization. There
// is no optimistic local removal: the server's post-deletion state is the
// sole source of truth for the next view. Deletes are allowed to race an
// in-flight refresh; the resync carries a newer generation and wins.
func (r *Reconciler) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	_, ok := r.processed[name]
	r.mu.Unlock()
	if !ok {
		return ErrNotProcessed
	}

	if err := r.api.DeleteDocument(ctx, name); err != nil {
		return err
	}
	return r.Fetch(ctx)
}

func toSet(docs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		set[d] = struct{}{}
	}
	return set
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
