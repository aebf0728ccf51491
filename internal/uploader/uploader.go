package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/niktheblak/waterlevel-uploader/pkg/document"
	"github.com/niktheblak/waterlevel-uploader/pkg/documents"
	"github.com/niktheblak/waterlevel-uploader/pkg/result"
	"github.com/niktheblak/waterlevel-uploader/pkg/sensor"
	"github.com/niktheblak/waterlevel-uploader/pkg/store"
	"github.com/niktheblak/waterlevel-uploader/pkg/timestamp"
)

const TaskUID = "createDocumentTask"

var ErrNoProjectID = errors.New("project id is required")

type Config struct {
	ProjectID  string
	DatabaseID string
	// Collection receives documents uploaded with Upload.
	Collection string
	Mask       store.Mask
	Formatter  *timestamp.Formatter
	Sink       result.Sink
	Logger     *slog.Logger
	Now        func() time.Time
}

// Uploader builds water level documents and creates them asynchronously.
type Uploader struct {
	docs       *documents.Documents
	parent     store.Parent
	collection string
	mask       store.Mask
	formatter  *timestamp.Formatter
	sink       result.Sink
	logger     *slog.Logger
	now        func() time.Time
}

func New(docs *documents.Documents, cfg Config) (*Uploader, error) {
	if cfg.ProjectID == "" {
		return nil, ErrNoProjectID
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Sink == nil {
		cfg.Sink = &result.LogSink{Logger: cfg.Logger}
	}
	if cfg.Formatter == nil {
		cfg.Formatter = &timestamp.Formatter{Logger: cfg.Logger}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Collection == "" {
		cfg.Collection = "levels"
	}
	return &Uploader{
		docs: docs,
		parent: store.Parent{
			ProjectID:  cfg.ProjectID,
			DatabaseID: cfg.DatabaseID,
		},
		collection: cfg.Collection,
		mask:       cfg.Mask,
		formatter:  cfg.Formatter,
		sink:       cfg.Sink,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// CreateWaterLevelDocument builds a document stamped with the current time.
func (u *Uploader) CreateWaterLevelDocument(depth, battery float64) *document.Document {
	return document.NewWaterLevel(sensor.Reading{
		Depth:          depth,
		BatteryVoltage: battery,
		Time:           u.now(),
	}, u.formatter)
}

// CreateDocumentAsync starts creating doc at documentPath. Results are
// reported to the configured sink.
func (u *Uploader) CreateDocumentAsync(ctx context.Context, doc *document.Document, documentPath string) {
	u.logger.LogAttrs(ctx, slog.LevelInfo, "Creating a document", slog.String("project", u.parent.ProjectID), slog.String("path", documentPath))
	u.docs.CreateDocument(ctx, u.parent, documentPath, u.mask, doc, result.ProcessWith(u.sink), TaskUID)
}

// Upload validates a reading and creates its document in the configured
// collection. The reading time is used as is; a zero time means now.
func (u *Uploader) Upload(ctx context.Context, r sensor.Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Time.IsZero() {
		r.Time = u.now()
	}
	u.CreateDocumentAsync(ctx, document.NewWaterLevel(r, u.formatter), u.collection)
	return nil
}

// Wait blocks until all started uploads have reported their results.
func (u *Uploader) Wait() {
	u.docs.Wait()
}
