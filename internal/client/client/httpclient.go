package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	userAgent = "authkeeper/1.0"

	// maxErrorBody caps how much of a failed response becomes the message.
	maxErrorBody = 64 << 10

	pathRegister = "/api/auth/register"
	pathLogin    = "/api/auth/login"
	pathLogout   = "/api/auth/logout"
	pathRefresh  = "/api/auth/refresh"
	pathMe       = "/api/auth/me"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// validator is implemented by response bodies that can decode cleanly and
// still carry no usable data ({} or null).
type validator interface {
	validate() error
}

type authResponse struct {
	models.AuthResult
}

func (r *authResponse) validate() error {
	if r.User.ID == 0 {
		return errMissingUser
	}
	if r.RefreshToken == "" {
		return errMissingRefreshToken
	}
	return nil
}

type userResponse struct {
	models.User
}

func (r *userResponse) validate() error {
	if r.ID == 0 {
		return errMissingUser
	}
	return nil
}

// HTTPClient implements Client over the backend's JSON REST routes.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	jar     *sessionJar
	log     logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the backend at serverURL
// (e.g. "http://127.0.0.1:3000"). timeout bounds every request; zero means
// no limit.
func NewHTTPClient(serverURL string, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must include scheme and host", serverURL)
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &HTTPClient{
		baseURL: u,
		jar:     jar,
		log:     log.With("component", "api"),
		http: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: &headerTransport{base: http.DefaultTransport, userAgent: userAgent},
		},
	}, nil
}

// Register creates an account and signs it in. On success the backend sets
// the access_token cookie in the client's jar and returns the user with a
// fresh refresh token. A 2xx body without a user id or refresh token is a
// KindDecode failure.
func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	var res authResponse
	req := registerRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, "register", http.MethodPost, pathRegister, req, &res); err != nil {
		return nil, err
	}
	return &res.AuthResult, nil
}

// Login signs in with email and password. Same response contract as Register.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var res authResponse
	if err := c.do(ctx, "login", http.MethodPost, pathLogin, loginRequest{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	return &res.AuthResult, nil
}

// Refresh exchanges refreshToken for a new access cookie. The backend may
// return the same refresh token; callers store whatever comes back.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	var res authResponse
	if err := c.do(ctx, "refresh", http.MethodPost, pathRefresh, refreshTokenRequest{RefreshToken: refreshToken}, &res); err != nil {
		return nil, err
	}
	return &res.AuthResult, nil
}

// Logout asks the backend to revoke refreshToken and forgets the local
// access cookie whatever the outcome.
func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	err := c.do(ctx, "logout", http.MethodPost, pathLogout, refreshTokenRequest{RefreshToken: refreshToken}, nil)
	if rerr := c.jar.Reset(); rerr != nil {
		c.log.Warn(ctx, "cookie jar reset failed", "error", rerr)
	}
	return err
}

// CurrentUser asks who the access cookie in the jar belongs to. Without a
// valid cookie the backend answers 401, which comes back as KindHTTP.
func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var u userResponse
	if err := c.do(ctx, "me", http.MethodGet, pathMe, nil, &u); err != nil {
		return nil, err
	}
	return &u.User, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) resolve(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// do sends in (if any) as JSON and decodes a 2xx body into out (if any).
// If out implements validator, a body that decodes but fails validation is
// a KindDecode failure. Every failure comes back as *RequestFailedError.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &RequestFailedError{Op: op, Kind: KindTransport, Message: fmt.Sprintf("encoding %s request: %v", op, err), Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return &RequestFailedError{Op: op, Kind: KindTransport, Message: err.Error(), Err: err}
	}

	reqID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, reqID)
	log := c.log.With("request_id", reqID, "op", op)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug(ctx, "request failed", "error", err, "duration", time.Since(start))
		return &RequestFailedError{Op: op, Kind: KindTransport, Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	log.Debug(ctx, "request done", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &RequestFailedError{Op: op, Kind: KindHTTP, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err == nil {
		if v, ok := out.(validator); ok {
			err = v.validate()
		}
	}
	if err != nil {
		return &RequestFailedError{
			Op:      op,
			Kind:    KindDecode,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decoding %s response: %v", op, err),
			Err:     err,
		}
	}
	return nil
}

// transportMessage strips the *url.Error wrapper, which repeats the method
// and full URL, so the message reads well in a UI.
func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
