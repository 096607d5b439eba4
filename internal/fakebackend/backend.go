// Package fakebackend runs an in-process stand-in for the auth backend's
// REST routes. Tests use it to drive the HTTP client and the session
// manager end to end; it is not a reference implementation of the server.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Operation names accepted by SetFailure and Calls.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpRefresh  = "refresh"
	OpMe       = "me"
)

const accessTokenTTL = 15 * time.Minute

var signingKey = []byte("fakebackend-signing-key")

// Failure is a canned response served instead of the real handler.
type Failure struct {
	Status int
	Body   string
}

type account struct {
	user     models.User
	password string
}

// Backend is a running fake server. All methods are safe for concurrent use.
type Backend struct {
	mu         sync.Mutex
	nextID     int64
	accounts   map[string]*account
	refresh    map[string]int64
	access     map[string]int64
	failures   map[string]Failure
	calls      map[string]int
	requestIDs []string

	srv *httptest.Server
}

// Start launches the fake backend on a random local port.
func Start() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		nextID:   1,
		accounts: make(map[string]*account),
		refresh:  make(map[string]int64),
		access:   make(map[string]int64),
		failures: make(map[string]Failure),
		calls:    make(map[string]int),
	}

	router := gin.New()
	api := router.Group("/api/auth", b.record)
	{
		api.POST("/register", b.failOr(OpRegister), b.register)
		api.POST("/login", b.failOr(OpLogin), b.login)
		api.POST("/logout", b.failOr(OpLogout), b.logout)
		api.POST("/refresh", b.failOr(OpRefresh), b.refreshToken)
		api.GET("/me", b.failOr(OpMe), b.me)
	}

	b.srv = httptest.NewServer(router)
	return b
}

// URL is the base URL of the server.
func (b *Backend) URL() string { return b.srv.URL }

// Close shuts the server down.
func (b *Backend) Close() { b.srv.Close() }

// AddUser creates an account directly.
func (b *Backend) AddUser(username, email, password string) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email, password)
}

// IssueRefreshToken mints a refresh token for an existing account, as if it
// had been obtained in an earlier process run.
func (b *Backend) IssueRefreshToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[strings.ToLower(email)]
	if !ok {
		return ""
	}
	tok := uuid.NewString()
	b.refresh[tok] = acc.user.ID
	return tok
}

// ExpireAccessTokens forgets every issued access token, so /me rejects
// cookies held by clients.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]int64)
}

// HasRefreshToken reports whether tok is still valid on the server.
func (b *Backend) HasRefreshToken(tok string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.refresh[tok]
	return ok
}

// SetFailure makes every call to op answer with f until ClearFailure.
func (b *Backend) SetFailure(op string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = f
}

func (b *Backend) ClearFailure(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, op)
}

// Calls returns how many requests op received.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// RequestIDs returns the X-Request-ID values seen so far, in order.
func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requestIDs...)
}

func (b *Backend) addUserLocked(username, email, password string) models.User {
	u := models.User{
		ID:        b.nextID,
		Username:  username,
		Email:     strings.ToLower(email),
		CreatedAt: models.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
	}
	b.nextID++
	b.accounts[u.Email] = &account{user: u, password: password}
	return u
}

func (b *Backend) record(c *gin.Context) {
	op := strings.TrimPrefix(c.FullPath(), "/api/auth/")

	b.mu.Lock()
	b.calls[op]++
	b.requestIDs = append(b.requestIDs, c.GetHeader(common.RequestIDHeaderName))
	b.mu.Unlock()

	c.Next()
}

func (b *Backend) failOr(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		f, ok := b.failures[op]
		b.mu.Unlock()

		if ok {
			c.Data(f.Status, "text/plain; charset=utf-8", []byte(f.Body))
			c.Abort()
			return
		}
		c.Next()
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (b *Backend) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": err.Error()})
		return
	}
	if len(req.Username) < 3 || len(req.Password) < 8 || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": "invalid username, email or password"})
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[strings.ToLower(req.Email)]; exists {
		b.mu.Unlock()
		c.String(http.StatusConflict, "Email or username already exists")
		return
	}
	u := b.addUserLocked(req.Username, req.Email, req.Password)
	b.mu.Unlock()

	b.respondWithTokens(c, u, "")
}

func (b *Backend) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[strings.ToLower(req.Email)]
	b.mu.Unlock()

	if !ok || acc.password != req.Password {
		c.String(http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.respondWithTokens(c, acc.user, "")
}

func (b *Backend) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	userID, ok := b.refresh[req.RefreshToken]
	u, found := b.userByIDLocked(userID)
	b.mu.Unlock()

	if !ok || !found {
		c.String(http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	b.respondWithTokens(c, u, req.RefreshToken)
}

func (b *Backend) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	delete(b.refresh, req.RefreshToken)
	b.mu.Unlock()

	c.Status(http.StatusNoContent)
}

func (b *Backend) me(c *gin.Context) {
	tok, err := c.Cookie(common.AccessTokenCookieName)
	if err != nil {
		tok = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if tok == "" {
		c.String(http.StatusUnauthorized, "Missing authentication token")
		return
	}

	b.mu.Lock()
	userID, ok := b.access[tok]
	u, found := b.userByIDLocked(userID)
	b.mu.Unlock()

	if !ok || !found {
		c.String(http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	c.JSON(http.StatusOK, u)
}

// respondWithTokens issues a fresh access token and, unless reuse is set,
// a fresh refresh token.
func (b *Backend) respondWithTokens(c *gin.Context, u models.User, reuse string) {
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.Email,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
		ID:        uuid.NewString(),
	}).SignedString(signingKey)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to create token")
		return
	}

	refresh := reuse
	if refresh == "" {
		refresh = uuid.NewString()
	}

	b.mu.Lock()
	b.access[access] = u.ID
	b.refresh[refresh] = u.ID
	b.mu.Unlock()

	c.SetCookie(common.AccessTokenCookieName, access, int(accessTokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, models.AuthResult{User: u, AccessToken: access, RefreshToken: refresh})
}

func (b *Backend) userByIDLocked(id int64) (models.User, bool) {
	for _, acc := range b.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return models.User{}, false
}
