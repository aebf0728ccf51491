package uploader

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niktheblak/waterlevel-uploader/pkg/auth"
	"github.com/niktheblak/waterlevel-uploader/pkg/document"
	"github.com/niktheblak/waterlevel-uploader/pkg/documents"
	"github.com/niktheblak/waterlevel-uploader/pkg/result"
	"github.com/niktheblak/waterlevel-uploader/pkg/sensor"
	"github.com/niktheblak/waterlevel-uploader/pkg/store"
	"github.com/niktheblak/waterlevel-uploader/pkg/timestamp"
)

var testTime = time.Date(2020, time.December, 10, 12, 10, 39, 0, time.UTC)

type received struct {
	Path  string
	Query map[string][]string
	Body  map[string]any
}

func newTestUploader(t *testing.T, status int) (*Uploader, *result.RecordingSink, func() []received) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []received
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		reqs = append(reqs, received{Path: r.URL.Path, Query: r.URL.Query(), Body: body})
		mu.Unlock()
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"name":"created"}`))
		} else {
			w.Write([]byte(`{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	s, err := store.NewFirestore(context.Background(), store.FirestoreConfig{BaseURL: srv.URL, Authorizer: auth.Bearer("tkn")})
	require.NoError(t, err)
	docs := documents.New(s, documents.Options{})
	t.Cleanup(func() { docs.Close() })
	sink := new(result.RecordingSink)
	u, err := New(docs, Config{
		ProjectID:  "water-level-test",
		Collection: "sites/river/levels",
		Formatter:  timestamp.UTC(),
		Sink:       sink,
		Now:        func() time.Time { return testTime },
	})
	require.NoError(t, err)
	return u, sink, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), reqs...)
	}
}

func TestNew_RequiresProjectID(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, ErrNoProjectID)
}

func TestCreateWaterLevelDocument(t *testing.T) {
	t.Parallel()

	u, _, _ := newTestUploader(t, http.StatusOK)
	doc := u.CreateWaterLevelDocument(132.5, 3.71)
	ts, ok := doc.Get(document.FieldTimestamp)
	require.True(t, ok)
	assert.Equal(t, "2020-12-10T12:10:39.999999999Z", ts.StringValue())
	depth, _ := doc.Get(document.FieldDepth)
	assert.Equal(t, 132.5, depth.DoubleValue())
	battery, _ := doc.Get(document.FieldBattery)
	assert.Equal(t, 3.71, battery.DoubleValue())
}

func TestCreateDocumentAsync(t *testing.T) {
	t.Parallel()

	u, sink, requests := newTestUploader(t, http.StatusOK)
	u.CreateDocumentAsync(context.Background(), u.CreateWaterLevelDocument(132.5, 3.71), "sites/river/levels/reading-1")
	u.Wait()

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/projects/water-level-test/databases/(default)/documents/sites/river/levels", reqs[0].Path)
	assert.Equal(t, []string{"reading-1"}, reqs[0].Query["documentId"])
	fields := reqs[0].Body["fields"].(map[string]any)
	assert.Equal(t, map[string]any{"timestampValue": "2020-12-10T12:10:39.999999999Z"}, fields["timestamp"])

	entries := sink.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, TaskUID, e.UID)
	}
	assert.Equal(t, "payload", entries[3].Kind)
	assert.Equal(t, `{"name":"created"}`, entries[3].Message)
}

func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("collection", func(t *testing.T) {
		t.Parallel()

		u, sink, requests := newTestUploader(t, http.StatusForbidden)
		reading := sensor.Reading{Depth: 1, BatteryVoltage: 3.3, Time: testTime.Add(time.Hour)}
		require.NoError(t, u.Upload(context.Background(), reading))
		u.Wait()

		reqs := requests()
		require.Len(t, reqs, 1)
		assert.NotContains(t, reqs[0].Query, "documentId")
		fields := reqs[0].Body["fields"].(map[string]any)
		assert.Equal(t, map[string]any{"timestampValue": "2020-12-10T13:10:39.999999999Z"}, fields["timestamp"])
		entries := sink.Entries()
		require.NotEmpty(t, entries)
		last := entries[len(entries)-1]
		assert.Equal(t, "error", last.Kind)
		assert.Equal(t, 403, last.Code)
	})
	t.Run("invalid reading", func(t *testing.T) {
		t.Parallel()

		u, sink, requests := newTestUploader(t, http.StatusOK)
		err := u.Upload(context.Background(), sensor.Reading{Depth: math.NaN()})
		assert.ErrorIs(t, err, sensor.ErrInvalidReading)
		u.Wait()
		assert.Empty(t, requests())
		assert.Empty(t, sink.Entries())
	})
}
