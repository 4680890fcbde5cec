package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/common"
	"github.com/akozadaev/inkpad/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const defaultCallTimeout = 10 * time.Second

// HTTPStore implements Store against the backend's REST API, with a
// websocket change feed (see ws.go).
//
// Tokens are handed in by the application; the store never performs a login.
// Before each call the access token's expiry is inspected (unverified parse:
// the client holds no server keys and only needs the exp claim) and the token
// is refreshed through the refresh endpoint when it is about to lapse.
type HTTPStore struct {
	baseURL     string
	wsURL       string
	client      *http.Client
	log         logging.Logger
	callTimeout time.Duration

	// tokenMu guards the token pair. The store is shared between the
	// connectivity probe, the sync engine and the change feed, so refreshes
	// run concurrently with other calls.
	tokenMu      sync.Mutex
	accessToken  string
	refreshToken string
}

// HTTPStoreOpts configures NewHTTPStore.
type HTTPStoreOpts struct {
	// BaseURL is the http(s) endpoint, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// WSURL is the ws(s) endpoint for the change feed. Empty disables Subscribe.
	WSURL string
	// CallTimeout bounds each remote call. Zero means a 10s default.
	CallTimeout time.Duration
	// AccessToken / RefreshToken are the session tokens, if the backend
	// requires them.
	AccessToken  string
	RefreshToken string
}

func NewHTTPStore(opts HTTPStoreOpts, log logging.Logger) *HTTPStore {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &HTTPStore{
		baseURL:      opts.BaseURL,
		wsURL:        opts.WSURL,
		client:       &http.Client{Timeout: timeout},
		log:          log,
		callTimeout:  timeout,
		accessToken:  opts.AccessToken,
		refreshToken: opts.RefreshToken,
	}
}

func (s *HTTPStore) Push(ctx context.Context, note *models.Note) error {
	path := fmt.Sprintf("/api/v1/owners/%s/notes/%s", note.OwnerID, note.ID)
	resp, err := s.doJSON(ctx, http.MethodPut, path, note)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return s.checkStatus(resp, http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

func (s *HTTPStore) Pull(ctx context.Context, ownerID string) ([]*models.Note, error) {
	path := fmt.Sprintf("/api/v1/owners/%s/notes", ownerID)
	resp, err := s.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := s.checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var result []*models.Note
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return result, nil
}

func (s *HTTPStore) Remove(ctx context.Context, ownerID, id string) error {
	path := fmt.Sprintf("/api/v1/owners/%s/notes/%s", ownerID, id)
	resp, err := s.doJSON(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// 404 means the note is already gone; Remove stays idempotent.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return s.checkStatus(resp, http.StatusOK, http.StatusNoContent)
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPStore) Ping(ctx context.Context) error {
	resp, err := s.doJSON(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return s.checkStatus(resp, http.StatusOK)
}

func (s *HTTPStore) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	if err := s.refreshIfExpired(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := s.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", common.ErrRemoteUnavailable, method, path, err)
	}
	return resp, nil
}

func (s *HTTPStore) checkStatus(resp *http.Response, accepted ...int) error {
	for _, code := range accepted {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return common.ErrNotFound
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", common.ErrRemoteUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d", common.ErrRemoteRejected, resp.StatusCode)
}

// bearerToken returns the current access token.
func (s *HTTPStore) bearerToken() string {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return s.accessToken
}

// refreshIfExpired renews the access token through the refresh endpoint when
// the current one has lapsed (or lapses within the next few seconds).
//
// tokenMu is held across the whole check-and-refresh, so concurrent callers
// wait for the one in-flight refresh and then see the fresh token instead of
// each hitting the refresh endpoint.
func (s *HTTPStore) refreshIfExpired(ctx context.Context) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if s.accessToken == "" || s.refreshToken == "" {
		return nil
	}
	if !tokenExpired(s.accessToken, 5*time.Second) {
		return nil
	}

	body, err := json.Marshal(map[string]string{"refresh_token": s.refreshToken})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/token/refresh", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token refresh: %v", common.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token refresh status %d", common.ErrRemoteRejected, resp.StatusCode)
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	s.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		s.refreshToken = tokens.RefreshToken
	}
	s.log.Debug(ctx, "access token refreshed")
	return nil
}

// tokenExpired reports whether the JWT's exp claim falls within leeway from
// now. Tokens that do not parse or carry no expiry are treated as still
// valid; the server will reject them if they are not.
func tokenExpired(token string, leeway time.Duration) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().Add(leeway).After(exp.Time)
}
