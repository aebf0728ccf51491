package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/niktheblak/waterlevel-uploader/pkg/auth"
	"github.com/niktheblak/waterlevel-uploader/pkg/document"
	"github.com/niktheblak/waterlevel-uploader/pkg/middleware"
)

const DefaultFirestoreURL = "https://firestore.googleapis.com"

// APIError is an error response from the Firestore REST API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`

	err error
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("firestore: %d %s: %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("firestore: %d: %s", e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAlreadyExists && e.Code == http.StatusConflict
}

func (e *APIError) Unwrap() error {
	return e.err
}

type FirestoreConfig struct {
	BaseURL    string
	Authorizer auth.Authorizer
	Timeout    time.Duration
	Transport  http.RoundTripper
	Logger     *slog.Logger
}

type firestoreStore struct {
	baseURL string
	client  *http.Client
	service *firestore.Service
	logger  *slog.Logger
}

// NewFirestore creates a store backed by the Firestore REST API. Requests go
// through cfg.Authorizer; no Google default credentials are looked up.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (Store, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFirestoreURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = auth.None()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	client := &http.Client{
		Transport: middleware.Authorizer(cfg.Transport, cfg.Authorizer),
		Timeout:   cfg.Timeout,
	}
	service, err := firestore.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(baseURL+"/"))
	if err != nil {
		return nil, fmt.Errorf("create Firestore client: %w", err)
	}
	return &firestoreStore{
		baseURL: baseURL,
		client:  client,
		service: service,
		logger:  cfg.Logger,
	}, nil
}

// Create calls projects.databases.documents.createDocument.
func (s *firestoreStore) Create(ctx context.Context, parent Parent, path string, mask Mask, doc *document.Document) ([]byte, error) {
	parentPath, collectionID, documentID, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	if parent.ProjectID == "" {
		return nil, errors.New("project id is required")
	}
	fields, err := firestoreFields(doc)
	if err != nil {
		return nil, err
	}
	name := parent.Name() + "/documents"
	if parentPath != "" {
		name += "/" + parentPath
	}
	call := s.service.Projects.Databases.Documents.CreateDocument(name, collectionID, &firestore.Document{Fields: fields})
	if documentID != "" {
		call = call.DocumentId(documentID)
	}
	if len(mask) > 0 {
		call = call.MaskFieldPaths(mask...)
	}
	s.logger.LogAttrs(
		ctx,
		slog.LevelDebug,
		"Creating document",
		slog.String("parent", name),
		slog.String("collection", collectionID),
		slog.String("document_id", documentID),
		slog.Int("fields", len(fields)),
	)
	created, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}
	payload, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return payload, nil
}

// Ping checks that the API endpoint is reachable. Any HTTP response counts.
func (s *firestoreStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL, nil)
	if err != nil {
		return err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func (s *firestoreStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func firestoreFields(doc *document.Document) (map[string]firestore.Value, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	fields := make(map[string]firestore.Value, doc.Len())
	for _, name := range doc.Names() {
		v, _ := doc.Get(name)
		fv, err := firestoreValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidDocument, name, err)
		}
		fields[name] = fv
	}
	return fields, nil
}

// firestoreValue converts v to the generated API type. Zero values are
// force-sent so that e.g. a depth of 0 is not dropped as empty.
func firestoreValue(v document.Value) (firestore.Value, error) {
	switch v.Kind() {
	case document.KindNull:
		return firestore.Value{NullValue: "NULL_VALUE"}, nil
	case document.KindBoolean:
		return firestore.Value{BooleanValue: v.BoolValue(), ForceSendFields: []string{"BooleanValue"}}, nil
	case document.KindInteger:
		return firestore.Value{IntegerValue: v.IntValue(), ForceSendFields: []string{"IntegerValue"}}, nil
	case document.KindDouble:
		f := v.DoubleValue()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return firestore.Value{}, fmt.Errorf("non-finite double %v", f)
		}
		return firestore.Value{DoubleValue: f, ForceSendFields: []string{"DoubleValue"}}, nil
	case document.KindString:
		return firestore.Value{StringValue: v.StringValue(), ForceSendFields: []string{"StringValue"}}, nil
	case document.KindTimestamp:
		return firestore.Value{TimestampValue: v.StringValue(), ForceSendFields: []string{"TimestampValue"}}, nil
	default:
		return firestore.Value{}, fmt.Errorf("%w: %s", document.ErrUnknownValueKind, v.Kind())
	}
}

// apiError converts a googleapi error into an *APIError, keeping the status
// name from the Google error body when there is one.
func apiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	e := parseAPIError(gerr.Code, []byte(gerr.Body))
	if e.Message == "" {
		e.Message = gerr.Message
	}
	e.err = gerr
	return e
}

func parseAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Code == 0 {
			envelope.Error.Code = status
		}
		return envelope.Error
	}
	return &APIError{
		Code:    status,
		Message: strings.TrimSpace(string(body)),
	}
}
