package store

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/niktheblak/waterlevel-uploader/pkg/auth"
	"github.com/niktheblak/waterlevel-uploader/pkg/document"
)

const testToken = "a65cd12f9bba453"

type capturedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Auth   string
	Body   []byte
}

func firestoreServer(t *testing.T, status int, response string) (*httptest.Server, chan capturedRequest) {
	t.Helper()
	requests := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func TestFirestore_Create(t *testing.T) {
	t.Parallel()

	response := `{"name":"projects/water/databases/(default)/documents/sites/river/levels/abc","fields":{"depth":{"doubleValue":1.5}}}`
	srv, requests := firestoreServer(t, http.StatusOK, response)
	s, err := NewFirestore(context.Background(), FirestoreConfig{
		BaseURL:    srv.URL,
		Authorizer: auth.Bearer(testToken),
	})
	require.NoError(t, err)
	defer s.Close()

	doc := document.New().Add("depth", document.Double(1.5)).Add("timestamp", document.Timestamp("2020-12-10T12:10:39.999999999Z"))
	payload, err := s.Create(context.Background(), Parent{ProjectID: "water"}, "sites/river/levels/abc", Mask{"depth"}, doc)
	require.NoError(t, err)
	assert.JSONEq(t, response, string(payload))

	req := <-requests
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v1/projects/water/databases/(default)/documents/sites/river/levels", req.Path)
	assert.Equal(t, []string{"abc"}, req.Query["documentId"])
	assert.Equal(t, []string{"depth"}, req.Query["mask.fieldPaths"])
	assert.Equal(t, "Bearer "+testToken, req.Auth)
	assert.JSONEq(t, `{"fields":{"depth":{"doubleValue":1.5},"timestamp":{"timestampValue":"2020-12-10T12:10:39.999999999Z"}}}`, string(req.Body))
}

func TestFirestore_CreateInCollection(t *testing.T) {
	t.Parallel()

	srv, requests := firestoreServer(t, http.StatusOK, `{}`)
	s, err := NewFirestore(context.Background(), FirestoreConfig{
		BaseURL:    srv.URL + "/",
		Authorizer: auth.APIKey("web_key"),
	})
	require.NoError(t, err)

	_, err = s.Create(context.Background(), Parent{ProjectID: "water", DatabaseID: "levels"}, "readings", nil, document.New())
	require.NoError(t, err)
	req := <-requests
	assert.Equal(t, "/v1/projects/water/databases/levels/documents/readings", req.Path)
	assert.NotContains(t, req.Query, "documentId")
	assert.Equal(t, []string{"web_key"}, req.Query["key"])
	assert.Empty(t, req.Auth)
}

func TestFirestore_EscapesPathSegments(t *testing.T) {
	t.Parallel()

	srv, requests := firestoreServer(t, http.StatusOK, `{}`)
	s, err := NewFirestore(context.Background(), FirestoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "sites/north bank?#1/level readings/a b", nil, document.New())
	require.NoError(t, err)
	req := <-requests
	assert.Equal(t, "/v1/projects/water/databases/(default)/documents/sites/north bank?#1/level readings", req.Path)
	assert.Equal(t, []string{"a b"}, req.Query["documentId"])
}

func TestFirestore_Values(t *testing.T) {
	t.Parallel()

	srv, requests := firestoreServer(t, http.StatusOK, `{}`)
	s, err := NewFirestore(context.Background(), FirestoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	doc := document.New().
		Add("depth", document.Double(0)).
		Add("count", document.Integer(0)).
		Add("ok", document.Bool(false)).
		Add("note", document.String("")).
		Add("gone", document.Null())
	_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "levels/zero", nil, doc)
	require.NoError(t, err)
	req := <-requests
	assert.JSONEq(t, `{"fields":{
		"depth":{"doubleValue":0},
		"count":{"integerValue":"0"},
		"ok":{"booleanValue":false},
		"note":{"stringValue":""},
		"gone":{"nullValue":"NULL_VALUE"}
	}}`, string(req.Body))

	_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "levels/nan", nil, document.New().Add("depth", document.Double(math.NaN())))
	assert.ErrorIs(t, err, ErrInvalidDocument)
	_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "levels/nil", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestFirestore_APIError(t *testing.T) {
	t.Parallel()

	t.Run("google error", func(t *testing.T) {
		t.Parallel()

		srv, _ := firestoreServer(t, http.StatusConflict, `{"error":{"code":409,"message":"Document already exists","status":"ALREADY_EXISTS"}}`)
		s, err := NewFirestore(context.Background(), FirestoreConfig{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "levels/abc", nil, document.New())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 409, apiErr.Code)
		assert.Equal(t, "ALREADY_EXISTS", apiErr.Status)
		assert.Equal(t, "Document already exists", apiErr.Message)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		var gerr *googleapi.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, http.StatusConflict, gerr.Code)
	})
	t.Run("plain body", func(t *testing.T) {
		t.Parallel()

		srv, _ := firestoreServer(t, http.StatusBadGateway, "upstream down\n")
		s, err := NewFirestore(context.Background(), FirestoreConfig{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "levels/abc", nil, document.New())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.Code)
		assert.Equal(t, "upstream down", apiErr.Message)
		assert.NotErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestFirestore_InvalidInput(t *testing.T) {
	t.Parallel()

	s, err := NewFirestore(context.Background(), FirestoreConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = s.Create(context.Background(), Parent{ProjectID: "water"}, "levels//abc", nil, document.New())
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = s.Create(context.Background(), Parent{}, "levels/abc", nil, document.New())
	assert.Error(t, err)
}

func TestFirestore_Ping(t *testing.T) {
	t.Parallel()

	srv, _ := firestoreServer(t, http.StatusNotFound, "")
	s, err := NewFirestore(context.Background(), FirestoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestAPIError_JSON(t *testing.T) {
	t.Parallel()

	var err error = parseAPIError(http.StatusForbidden, []byte(`{"error":{"message":"Missing or insufficient permissions.","status":"PERMISSION_DENIED"}}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
	assert.Equal(t, "firestore: 403 PERMISSION_DENIED: Missing or insufficient permissions.", apiErr.Error())
	_, jsonErr := json.Marshal(apiErr)
	assert.NoError(t, jsonErr)
}
