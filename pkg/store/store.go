package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/niktheblak/waterlevel-uploader/pkg/document"
	"github.com/niktheblak/waterlevel-uploader/pkg/timestamp"
)

const DefaultDatabase = "(default)"

var (
	ErrInvalidPath     = errors.New("invalid document path")
	ErrInvalidDocument = errors.New("invalid document")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrUnknownBackend  = errors.New("unknown store backend")
)

// Parent identifies the database documents are created in.
type Parent struct {
	ProjectID  string
	DatabaseID string
}

func (p Parent) Database() string {
	if p.DatabaseID == "" {
		return DefaultDatabase
	}
	return p.DatabaseID
}

// Name returns the resource name projects/{project}/databases/{database}.
func (p Parent) Name() string {
	return fmt.Sprintf("projects/%s/databases/%s", p.ProjectID, p.Database())
}

// Mask lists the field paths returned after a create. An empty mask
// returns every field.
type Mask []string

func (m Mask) Apply(doc *document.Document) *document.Document {
	if len(m) == 0 {
		return doc
	}
	masked := document.New()
	for _, name := range m {
		if v, ok := doc.Get(name); ok {
			masked.Add(name, v)
		}
	}
	return masked
}

// Store creates documents. Create returns the created document as JSON.
type Store interface {
	Create(ctx context.Context, parent Parent, path string, mask Mask, doc *document.Document) ([]byte, error)
	Ping(ctx context.Context) error
	io.Closer
}

type Config struct {
	Backend   string
	Firestore FirestoreConfig
	Postgres  PostgresConfig
	SQLite    SQLiteConfig
	MQTT      MQTTConfig
	Logger    *slog.Logger
}

// New creates the store selected by cfg.Backend
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "Creating store", slog.String("backend", cfg.Backend))
	switch cfg.Backend {
	case "", "firestore":
		cfg.Firestore.Logger = cfg.Logger
		return NewFirestore(ctx, cfg.Firestore)
	case "postgres":
		cfg.Postgres.Logger = cfg.Logger
		return NewPostgres(ctx, cfg.Postgres)
	case "sqlite":
		cfg.SQLite.Logger = cfg.Logger
		return NewSQLite(ctx, cfg.SQLite)
	case "mqtt":
		cfg.MQTT.Logger = cfg.Logger
		return DialMQTT(ctx, cfg.MQTT)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// SplitPath splits a document path into its parent path, collection id and
// document id. A path with an odd number of segments names a collection and
// yields an empty document id.
func SplitPath(path string) (parentPath, collectionID, documentID string, err error) {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return "", "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	if len(segments)%2 == 0 {
		documentID = segments[len(segments)-1]
		segments = segments[:len(segments)-1]
	}
	collectionID = segments[len(segments)-1]
	parentPath = strings.Join(segments[:len(segments)-1], "/")
	return
}

// resolvePath returns the full document path, generating a document id for
// collection paths.
func resolvePath(path string) (string, error) {
	_, _, documentID, err := SplitPath(path)
	if err != nil {
		return "", err
	}
	if documentID == "" {
		return path + "/" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
	}
	return path, nil
}

// render encodes doc the way the Firestore REST API returns created documents.
func render(parent Parent, path string, doc *document.Document, created time.Time) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	createTime, err := json.Marshal(timestamp.UTC().FormatTime(created))
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(parent.Name() + "/documents/" + path)
	if err != nil {
		return nil, err
	}
	m["name"] = name
	m["createTime"] = createTime
	m["updateTime"] = createTime
	return json.Marshal(m)
}
