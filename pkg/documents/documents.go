package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/niktheblak/waterlevel-uploader/pkg/document"
	"github.com/niktheblak/waterlevel-uploader/pkg/result"
	"github.com/niktheblak/waterlevel-uploader/pkg/store"
)

var (
	ErrClosed      = errors.New("documents client closed")
	ErrNilDocument = errors.New("nil document")
)

type Options struct {
	Logger *slog.Logger
}

// Documents runs document operations asynchronously and reports their
// progress to callbacks.
type Documents struct {
	store  store.Store
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(s store.Store, opts Options) *Documents {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Documents{
		store:  s,
		logger: opts.Logger,
	}
}

// CreateDocument creates doc at path in the background. The callback is
// invoked with a started event, a debug message and then either an error or
// a completed event followed by the created document as payload.
// An empty uid is replaced with a random one. A nil doc is reported as an
// error through the callback before anything is started.
func (d *Documents) CreateDocument(ctx context.Context, parent store.Parent, path string, mask store.Mask, doc *document.Document, cb result.Callback, uid string) {
	if uid == "" {
		uid = uuid.NewString()
	}
	if cb == nil {
		cb = func(result.Result) {}
	}
	if doc == nil {
		cb(result.Result{UID: uid, Error: &result.Error{Message: ErrNilDocument.Error(), Code: result.CodeInvalidArgument}})
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		cb(result.Result{UID: uid, Error: &result.Error{Message: ErrClosed.Error(), Code: result.CodeClosed}})
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		d.create(ctx, parent, path, mask, doc, cb, uid)
	}()
}

func (d *Documents) create(ctx context.Context, parent store.Parent, path string, mask store.Mask, doc *document.Document, cb result.Callback, uid string) {
	cb(result.Result{UID: uid, Event: &result.Event{Message: "creating document", Code: result.EventStarted}})
	cb(result.Result{UID: uid, Debug: fmt.Sprintf("create %s/documents/%s (%d fields)", parent.Name(), path, doc.Len())})
	payload, err := d.store.Create(ctx, parent, path, mask, doc)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelDebug, "Create document failed", slog.String("uid", uid), slog.String("path", path), slog.Any("error", err))
		cb(result.Result{UID: uid, Error: &result.Error{Message: err.Error(), Code: ErrorCode(err)}})
		return
	}
	cb(result.Result{UID: uid, Event: &result.Event{Message: "document created", Code: result.EventCompleted}})
	cb(result.Result{UID: uid, Payload: string(payload)})
}

// Wait blocks until every started operation has invoked its final callback.
func (d *Documents) Wait() {
	d.wg.Wait()
}

// Close rejects new operations, waits for running ones and closes the store.
func (d *Documents) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
	return d.store.Close()
}

// ErrorCode maps an operation error to the numeric code reported in results.
func ErrorCode(err error) int {
	var apiErr *store.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return result.CodeTimeout
	case errors.Is(err, context.Canceled):
		return result.CodeCanceled
	case errors.Is(err, store.ErrInvalidPath), errors.Is(err, store.ErrInvalidDocument), errors.Is(err, ErrNilDocument):
		return result.CodeInvalidArgument
	case errors.Is(err, ErrClosed):
		return result.CodeClosed
	default:
		return result.CodeUnknown
	}
}
