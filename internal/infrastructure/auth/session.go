// Package auth holds the end user's backend credentials for one checkout session.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

const DefaultRefreshPath = "/api/auth/refresh"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session attaches the bearer token to outgoing requests. A 401 triggers one
// refresh and one retry; if that fails the tokens are dropped for good.
type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string

	refreshURL string
	client     HTTPDoer
	log        *logger.Logger
}

func NewSession(client HTTPDoer, refreshURL, accessToken, refreshToken string, log *logger.Logger) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		refreshURL:   refreshURL,
		client:       client,
		log:          log,
	}
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) Do(req *http.Request) (*http.Response, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, domainErrors.ErrAuthExpired
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := s.send(req, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	token, err = s.refresh(req.Context(), token)
	if err != nil {
		return nil, err
	}

	resp, err = s.send(req, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		s.teardown("retry still unauthorized")
		return nil, domainErrors.ErrAuthExpired
	}
	return resp, nil
}

func (s *Session) send(req *http.Request, body []byte, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return s.client.Do(out)
}

// refresh swaps in a new access token. If another request already refreshed
// past stale, that token is reused instead of refreshing again.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && s.accessToken != stale {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		s.teardownLocked("no refresh token")
		return "", domainErrors.ErrAuthExpired
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": s.refreshToken})
	if err != nil {
		return "", fmt.Errorf("encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.RecordAuthRefresh("error")
		s.teardownLocked("refresh request failed")
		return "", fmt.Errorf("%w: %v", domainErrors.ErrAuthExpired, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		monitoring.RecordAuthRefresh("rejected")
		s.teardownLocked("refresh rejected")
		return "", domainErrors.ErrAuthExpired
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.AccessToken == "" {
		monitoring.RecordAuthRefresh("malformed")
		s.teardownLocked("refresh response without access token")
		return "", domainErrors.ErrAuthExpired
	}

	s.accessToken = result.AccessToken
	if result.RefreshToken != "" {
		s.refreshToken = result.RefreshToken
	}
	monitoring.RecordAuthRefresh("ok")
	s.log.Info("Access token refreshed")
	return s.accessToken, nil
}

func (s *Session) teardown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked(reason)
}

func (s *Session) teardownLocked(reason string) {
	s.accessToken = ""
	s.refreshToken = ""
	s.log.Warn("Auth session expired", "reason", reason)
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return body, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
