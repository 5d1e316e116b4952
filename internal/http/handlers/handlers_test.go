package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	httpmiddleware "github.com/wolfman30/prescription-ai-portal/internal/http/middleware"
	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type testEnv struct {
	store    *documents.MemoryStore
	feed     *notify.MemoryFeed
	registry *session.Registry
	logger   *logging.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  documents.NewMemoryStore(),
		feed:   notify.NewMemoryFeed(0),
		logger: logging.New("error"),
	}
	env.registry = session.NewRegistry(identity.NewLocalBackend(bcrypt.MinCost), session.Options{
		Store:  env.store,
		Feed:   env.feed,
		Logger: env.logger,
	}, time.Minute)
	t.Cleanup(env.registry.Close)
	return env
}

func (e *testEnv) session(t *testing.T) *session.Manager {
	t.Helper()
	m, err := e.registry.Create(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Settled(ctx))
	return m
}

func request(m *session.Manager, method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if m != nil {
		req = req.WithContext(httpmiddleware.WithSession(req.Context(), m))
	}
	return req
}

type sessionBody struct {
	SessionID   string `json:"sessionId"`
	State       string `json:"state"`
	DisplayName string `json:"displayName"`
	Session     struct {
		Identity *identity.User   `json:"identity"`
		Profile  *session.Profile `json:"profile"`
		Loading  bool             `json:"loading"`
	} `json:"session"`
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}
