package frappe_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockscan/internal/adapters/frappe"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/test/helpers"
)

type tokenServer struct {
	t            *testing.T
	srv          *httptest.Server
	tokenCalls   atomic.Int32
	revokeCalls  atomic.Int32
	refreshReply func(w http.ResponseWriter)
}

func newTokenServer(t *testing.T) *tokenServer {
	ts := &tokenServer{t: t}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/api/method/frappe.integrations.oauth2.get_token":
			ts.tokenCalls.Add(1)
			assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
			switch r.PostForm.Get("grant_type") {
			case "password":
				if r.PostForm.Get("password") != "secret" {
					writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid login credentials"}`)
					return
				}
				writeJSON(w, http.StatusOK, `{"access_token":"acc-1","refresh_token":"ref-1","token_type":"Bearer","expires_in":3600}`)
			case "refresh_token":
				if ts.refreshReply != nil {
					ts.refreshReply(w)
					return
				}
				assert.Equal(t, "ref-1", r.PostForm.Get("refresh_token"))
				writeJSON(w, http.StatusOK, `{"access_token":"acc-2","token_type":"Bearer","expires_in":3600}`)
			default:
				writeJSON(w, http.StatusBadRequest, `{"message":"unsupported grant"}`)
			}
		case "/api/method/frappe.integrations.oauth2.revoke_token":
			ts.revokeCalls.Add(1)
			assert.Equal(t, "acc-1", r.PostForm.Get("token"))
			writeJSON(w, http.StatusOK, `{"message":"ok"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *tokenServer) session(store *helpers.MemoryStore) *frappe.Session {
	s, err := frappe.NewSession(frappe.SessionConfig{
		BaseURL:  ts.srv.URL,
		ClientID: "client-1",
	}, store, helpers.TestLogger())
	require.NoError(ts.t, err)
	return s
}

func storedToken(t *testing.T, store *helpers.MemoryStore) (domain.Token, bool) {
	t.Helper()
	raw, ok := store.Raw(frappe.DefaultSessionKey)
	if !ok {
		return domain.Token{}, false
	}
	var tok domain.Token
	require.NoError(t, json.Unmarshal([]byte(raw), &tok))
	return tok, true
}

func TestSession_Login(t *testing.T) {
	ts := newTokenServer(t)
	store := helpers.NewMemoryStore()
	s := ts.session(store)
	ctx := context.Background()

	var seen []string
	unsubscribe := s.OnChange(func(tok domain.Token) { seen = append(seen, tok.AccessToken) })

	require.NoError(t, s.Login(ctx, "admin", "secret"))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", tok)
	assert.Equal(t, []string{"acc-1"}, seen)

	stored, ok := storedToken(t, store)
	require.True(t, ok)
	assert.Equal(t, "ref-1", stored.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.ExpiresAt, time.Minute)

	unsubscribe()
	require.NoError(t, s.Logout(ctx))
	assert.Len(t, seen, 1)
	assert.Equal(t, int32(1), ts.revokeCalls.Load())
	_, ok = storedToken(t, store)
	assert.False(t, ok)

	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, domain.ErrAuthExpired)
}

func TestSession_LoginRejected(t *testing.T) {
	ts := newTokenServer(t)
	s := ts.session(helpers.NewMemoryStore())
	ctx := context.Background()

	err := s.Login(ctx, "admin", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthExpired)

	err = s.Login(ctx, "", "")
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, int32(1), ts.tokenCalls.Load())
}

func TestSession_RestoresStoredToken(t *testing.T) {
	ts := newTokenServer(t)
	store := helpers.NewMemoryStore()
	store.Put(frappe.DefaultSessionKey, `{"access_token":"acc-1","refresh_token":"ref-1"}`)

	tok, err := ts.session(store).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", tok)
	assert.Zero(t, ts.tokenCalls.Load())
}

func TestSession_ExpiredTokenRefreshes(t *testing.T) {
	ts := newTokenServer(t)
	store := helpers.NewMemoryStore()
	expired := domain.Token{AccessToken: "acc-1", RefreshToken: "ref-1", ExpiresAt: time.Now().Add(-time.Minute)}
	raw, err := json.Marshal(expired)
	require.NoError(t, err)
	store.Put(frappe.DefaultSessionKey, string(raw))

	s := ts.session(store)
	var changes atomic.Int32
	s.OnChange(func(domain.Token) { changes.Add(1) })

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-2", tok)
	assert.Equal(t, int32(1), changes.Load())

	stored, ok := storedToken(t, store)
	require.True(t, ok)
	assert.Equal(t, "acc-2", stored.AccessToken)
	// the server sent no new refresh token, so the old one is kept
	assert.Equal(t, "ref-1", stored.RefreshToken)
}

func TestSession_ConcurrentRefresh(t *testing.T) {
	ts := newTokenServer(t)
	release := make(chan struct{})
	ts.refreshReply = func(w http.ResponseWriter) {
		<-release
		writeJSON(w, http.StatusOK, `{"access_token":"acc-2","expires_in":3600}`)
	}
	store := helpers.NewMemoryStore()
	store.Put(frappe.DefaultSessionKey, `{"access_token":"acc-1","refresh_token":"ref-1"}`)
	s := ts.session(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Refresh(ctx)
		}()
	}
	helpers.AssertEventuallyWithTimeout(t, func() bool { return ts.tokenCalls.Load() == 1 }, time.Second, "refresh request not sent")
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", tok)
}

func TestSession_RefreshRejected(t *testing.T) {
	ts := newTokenServer(t)
	ts.refreshReply = func(w http.ResponseWriter) {
		writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	}
	store := helpers.NewMemoryStore()
	store.Put(frappe.DefaultSessionKey, `{"access_token":"acc-1","refresh_token":"ref-1"}`)
	s := ts.session(store)

	var last *domain.Token
	s.OnChange(func(tok domain.Token) { last = &tok })

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthExpired)

	require.NotNil(t, last)
	assert.Empty(t, last.AccessToken)
	_, ok := storedToken(t, store)
	assert.False(t, ok)
}

func TestSession_RefreshServerErrorKeepsToken(t *testing.T) {
	ts := newTokenServer(t)
	ts.refreshReply = func(w http.ResponseWriter) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
	}
	store := helpers.NewMemoryStore()
	store.Put(frappe.DefaultSessionKey, `{"access_token":"acc-1","refresh_token":"ref-1"}`)
	s := ts.session(store)
	ctx := context.Background()

	err := s.Refresh(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAuthExpired)
	assert.Equal(t, "acc-1", s.Current(ctx).AccessToken)
}

func TestSession_RefreshWithoutRefreshToken(t *testing.T) {
	ts := newTokenServer(t)
	s := ts.session(helpers.NewMemoryStore())

	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.Zero(t, ts.tokenCalls.Load())
}

func TestNewSession_RequiresClientID(t *testing.T) {
	_, err := frappe.NewSession(frappe.SessionConfig{BaseURL: "https://erp.example.com"}, nil, helpers.TestLogger())
	assert.Error(t, err)
}
