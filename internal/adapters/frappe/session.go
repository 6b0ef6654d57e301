// internal/adapters/frappe/session.go
package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// DefaultSessionKey is the storage key of the persisted token pair.
const DefaultSessionKey = "session:tokens"

const (
	tokenMethod  = "frappe.integrations.oauth2.get_token"
	revokeMethod = "frappe.integrations.oauth2.revoke_token"
	// refresh a little before the backend would reject the token
	expirySkew = 30 * time.Second
)

// SessionConfig holds the OAuth2 client registration.
type SessionConfig struct {
	BaseURL     string
	ClientID    string
	RedirectURI string
	Scope       string
	StoreKey    string
	Timeout     time.Duration
}

// Session holds the OAuth2 token pair, persists it, and refreshes it on
// demand. Concurrent refreshes share one token request.
type Session struct {
	cfg     SessionConfig
	baseURL *url.URL
	http    *http.Client
	store   ports.KeyValueStore
	now     func() time.Time
	logger  *slog.Logger

	mu     sync.RWMutex
	token  domain.Token
	loaded bool

	refreshGroup singleflight.Group

	listenersMu sync.Mutex
	listeners   map[int]func(domain.Token)
	nextID      int
}

// Statically assert that *Session implements the Session interface.
var _ ports.Session = (*Session)(nil)

// NewSession creates a session. store may be nil, in which case tokens
// live in memory only.
func NewSession(cfg SessionConfig, store ports.KeyValueStore, logger *slog.Logger) (*Session, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		return nil, errors.New("oauth client id is required")
	}
	if cfg.StoreKey == "" {
		cfg.StoreKey = DefaultSessionKey
	}
	if cfg.Scope == "" {
		cfg.Scope = "all openid"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Session{
		cfg:       cfg,
		baseURL:   base,
		http:      &http.Client{Timeout: cfg.Timeout},
		store:     store,
		now:       time.Now,
		listeners: make(map[int]func(domain.Token)),
		logger:    logger.With(slog.String("component", "session")),
	}, nil
}

func (s *Session) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	s.loaded = true
	if s.store == nil {
		return
	}
	raw, err := s.store.Get(ctx, s.cfg.StoreKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "failed to load stored session",
				slog.String("error", err.Error()))
		}
		return
	}
	var t domain.Token
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable stored session",
			slog.String("error", err.Error()))
		return
	}
	s.token = t
}

// Current returns the token pair held by the session.
func (s *Session) Current(ctx context.Context) domain.Token {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Token returns a usable access token, refreshing an expired one first.
func (s *Session) Token(ctx context.Context) (string, error) {
	t := s.Current(ctx)
	if t.AccessToken == "" {
		return "", fmt.Errorf("not logged in: %w", domain.ErrAuthExpired)
	}
	if t.Valid(s.now().Add(expirySkew)) || t.RefreshToken == "" {
		return t.AccessToken, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return "", err
	}
	return s.Current(ctx).AccessToken, nil
}

// Refresh exchanges the refresh token for a new pair. A rejected
// refresh token ends the session.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, shared := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		current := s.Current(ctx)
		if current.RefreshToken == "" {
			return nil, fmt.Errorf("no refresh token: %w", domain.ErrAuthExpired)
		}

		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", current.RefreshToken)
		form.Set("client_id", s.cfg.ClientID)
		if s.cfg.RedirectURI != "" {
			form.Set("redirect_uri", s.cfg.RedirectURI)
		}

		t, err := s.requestToken(ctx, form)
		if err != nil {
			var herr *HTTPError
			if errors.As(err, &herr) && herr.StatusCode < http.StatusInternalServerError {
				s.setToken(ctx, domain.Token{})
				return nil, fmt.Errorf("refresh token rejected: %w: %w", domain.ErrAuthExpired, err)
			}
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}
		if t.RefreshToken == "" {
			t.RefreshToken = current.RefreshToken
		}
		s.setToken(ctx, t)
		s.logger.InfoContext(ctx, "access token refreshed")
		return nil, nil
	})
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight token refresh")
	}
	return err
}

// Login runs the password grant.
func (s *Session) Login(ctx context.Context, username, password string) error {
	ve := domain.NewValidationError()
	ve.Required("username", username)
	ve.Required("password", password)
	if err := ve.OrNil(); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("scope", s.cfg.Scope)

	t, err := s.requestToken(ctx, form)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	s.ensureLoaded(ctx)
	s.setToken(ctx, t)
	s.logger.InfoContext(ctx, "logged in", slog.String("username", username))
	return nil
}

// Logout revokes the token on the backend, best effort, and forgets it.
func (s *Session) Logout(ctx context.Context) error {
	t := s.Current(ctx)
	if t.AccessToken != "" {
		form := url.Values{}
		form.Set("token", t.AccessToken)
		if err := s.post(ctx, revokeMethod, form, nil); err != nil {
			s.logger.WarnContext(ctx, "token revoke failed",
				slog.String("error", err.Error()))
		}
	}
	s.setToken(ctx, domain.Token{})
	return nil
}

// OnChange registers fn for token changes.
func (s *Session) OnChange(fn func(domain.Token)) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) setToken(ctx context.Context, t domain.Token) {
	s.mu.Lock()
	s.token = t
	s.loaded = true
	s.mu.Unlock()

	s.persist(ctx, t)

	s.listenersMu.Lock()
	fns := make([]func(domain.Token), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

func (s *Session) persist(ctx context.Context, t domain.Token) {
	if s.store == nil {
		return
	}
	var err error
	if t.AccessToken == "" {
		err = s.store.Delete(ctx, s.cfg.StoreKey)
	} else {
		var b []byte
		b, err = json.Marshal(t)
		if err == nil {
			err = s.store.Set(ctx, s.cfg.StoreKey, string(b))
		}
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist session",
			slog.String("error", err.Error()))
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (s *Session) requestToken(ctx context.Context, form url.Values) (domain.Token, error) {
	var tr tokenResponse
	if err := s.post(ctx, tokenMethod, form, &tr); err != nil {
		return domain.Token{}, err
	}
	if tr.AccessToken == "" {
		return domain.Token{}, errors.New("token response has no access_token")
	}
	t := domain.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
	}
	if tr.ExpiresIn > 0 {
		t.ExpiresAt = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return t, nil
}

func (s *Session) post(ctx context.Context, method string, form url.Values, out any) error {
	u := *s.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api/method/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return &NetworkError{Method: http.MethodPost, Path: u.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &NetworkError{Method: http.MethodPost, Path: u.Path, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return newHTTPError(http.MethodPost, u.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	return nil
}
