package platformfake

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSecret      = "platformfake-secret"
	defaultIssuer      = "platformfake"
	defaultPlatformTTL = 15 * time.Minute
	defaultSystemTTL   = 8 * time.Hour
	defaultRefreshTTL  = 7 * 24 * time.Hour
)

// Failure is an injected response for a route. A zero Status aborts the
// connection instead, which the client sees as a transport error.
type Failure struct {
	Status  int
	Code    string
	Message string
	Times   int // 0 means every request until cleared
}

// Gate holds one request to a route until released.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *Gate {
	return &Gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// Entered is closed once the held request reaches the server.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets the held request continue.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// Server is an in-process implementation of the platform HTTP contract.
// It serves under APIPrefix and records every call for assertions.
type Server struct {
	mux    *http.ServeMux
	routes []string
	log    zerolog.Logger

	directory *Directory
	issuer    *Issuer
	refresh   *RefreshManager

	secret      []byte
	platformTTL time.Duration
	systemTTL   time.Duration
	refreshTTL  time.Duration
	bcryptCost  int
	accounts    []Account

	platformTokenField bool
	loginContext       bool
	flatSystems        bool
	allowedOrigins     []string

	mu          sync.Mutex
	calls       map[string]int
	lastHeaders map[string]http.Header
	failures    map[string]*Failure
	gates       map[string]*Gate
	devices     map[string]DeviceRecord
	platformGen int
	systemGen   int
}

// DeviceRecord is a registered device.
type DeviceRecord struct {
	UID        string
	Name       string
	Platform   string
	Heartbeats int
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithTokenTTL sets the lifetime of platform and system tokens.
func WithTokenTTL(platform, system time.Duration) Option {
	return func(s *Server) {
		s.platformTTL = platform
		s.systemTTL = system
	}
}

func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.refreshTTL = ttl
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) {
		s.bcryptCost = cost
	}
}

// WithAccounts replaces the demo account.
func WithAccounts(accounts ...Account) Option {
	return func(s *Server) {
		s.accounts = accounts
	}
}

// WithPlatformTokenField returns login and refresh tokens as "platform_token"
// instead of "access_token".
func WithPlatformTokenField() Option {
	return func(s *Server) {
		s.platformTokenField = true
	}
}

// WithLoginContext includes the platform permissions and menus in the login
// payload.
func WithLoginContext() Option {
	return func(s *Server) {
		s.loginContext = true
	}
}

// WithFlatSystems returns available systems as a flat list without roles.
func WithFlatSystems() Option {
	return func(s *Server) {
		s.flatSystems = true
	}
}

// WithAllowedOrigins sets the CORS origins; "*" allows any origin without
// credentials.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = normalizeOrigins(origins)
	}
}

func New(options ...Option) (*Server, error) {
	s := &Server{
		mux:         http.NewServeMux(),
		log:         zerolog.Nop(),
		secret:      []byte(defaultSecret),
		platformTTL: defaultPlatformTTL,
		systemTTL:   defaultSystemTTL,
		refreshTTL:  defaultRefreshTTL,
		bcryptCost:  bcrypt.DefaultCost,
		accounts:    []Account{DemoAccount()},
		calls:       make(map[string]int),
		lastHeaders: make(map[string]http.Header),
		failures:    make(map[string]*Failure),
		gates:       make(map[string]*Gate),
		devices:     make(map[string]DeviceRecord),
	}
	for _, opt := range options {
		opt(s)
	}

	s.directory = NewDirectory(s.bcryptCost)
	for _, a := range s.accounts {
		if err := s.directory.Add(a); err != nil {
			return nil, fmt.Errorf("[Server New] failed to add account %s: %w", a.User.Email, err)
		}
	}
	s.issuer = NewIssuer(NewHMACSigner(s.secret), defaultIssuer, s.platformTTL, s.systemTTL)
	s.refresh = NewRefreshManager(s.refreshTTL)

	s.initRoutes()
	s.mux.HandleFunc("OPTIONS "+APIPrefix+"/", ChainMiddleware(preflight, s.apiMiddleware()...))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RegisterRouteFunc mounts handler at method and APIPrefix+path.
func (s *Server) RegisterRouteFunc(method, path string, handler http.HandlerFunc) {
	pattern := method + " " + APIPrefix + path
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, ChainMiddleware(s.instrument(path, handler), s.apiMiddleware()...))
}

// Routes lists the registered patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// instrument records the call and applies any gate or injected failure.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate, failure := s.record(path, r)
		s.log.Debug().Str("method", r.Method).Str("path", path).Msg("fake platform request")

		if gate != nil {
			close(gate.entered)
			select {
			case <-gate.release:
			case <-r.Context().Done():
				return
			}
		}
		if failure != nil {
			if failure.Status == 0 {
				panic(http.ErrAbortHandler)
			}
			writeError(w, failure.Status, failure.Code, failure.Message)
			return
		}
		next(w, r)
	}
}

func (s *Server) record(path string, r *http.Request) (*Gate, *Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[path]++
	s.lastHeaders[path] = r.Header.Clone()

	gate := s.gates[path]
	delete(s.gates, path)

	f, ok := s.failures[path]
	if !ok {
		return gate, nil
	}
	failure := *f
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.failures, path)
		}
	}
	return gate, &failure
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastHeaders returns the headers of the latest request to path.
func (s *Server) LastHeaders(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeaders[path].Clone()
}

// Fail injects f for requests to path.
func (s *Server) Fail(path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &f
}

// FailNext makes only the next request to path fail with status.
func (s *Server) FailNext(path string, status int, code string) {
	s.Fail(path, Failure{Status: status, Code: code, Message: http.StatusText(status), Times: 1})
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]*Failure)
}

// Hold blocks the next request to path until the returned gate is released.
func (s *Server) Hold(path string) *Gate {
	g := newGate()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[path] = g
	return g
}

// ExpirePlatformTokens invalidates every platform token issued so far.
func (s *Server) ExpirePlatformTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platformGen++
}

// ExpireSystemTokens invalidates every system token issued so far.
func (s *Server) ExpireSystemTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemGen++
}

// RevokeRefreshTokens makes every outstanding refresh token invalid.
func (s *Server) RevokeRefreshTokens() {
	s.refresh.RevokeAll()
}

// Device returns the registration for uid.
func (s *Server) Device(uid string) (DeviceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[uid]
	return d, ok
}

func (s *Server) generations() (platform, system int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.platformGen, s.systemGen
}
