// Package tenablesc is the session gateway to the Tenable.sc REST API.
//
// A Session is opened with a username and password, carries the session
// cookie and token header on every call, and must be closed to release the
// server-side session. All list calls return only resources the user may use.
package tenablesc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/openctemio/scanctl/internal/metrics"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

const (
	apiPrefix     = "/rest"
	tokenHeader   = "X-SecurityCenter"
	maxErrorBody  = 64 << 10
	defaultAgent  = "scanctl"
	maxListBody   = 64 << 20
	contentJSON   = "application/json"
	errBodyPrefix = "response body"
)

// Config holds the settings needed to open a Session.
type Config struct {
	BaseURL            string
	Username           string
	Password           string
	Timeout            time.Duration
	ExportTimeout      time.Duration
	InsecureSkipVerify bool
	RequestsPerSecond  float64 // 0 disables pacing
	Burst              int
	UserAgent          string

	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// Session is an authenticated platform session.
type Session struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
	token      string
}

// APIError is a failed platform call.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: %d (error_code %d): %s", e.Method, e.Path, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsNotFound reports whether the platform answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// envelope is the common JSON wrapper of every REST response.
type envelope struct {
	Type      string          `json:"type"`
	Response  json.RawMessage `json:"response"`
	ErrorCode int             `json:"error_code"`
	ErrorMsg  string          `json:"error_msg"`
	Warnings  []any           `json:"warnings"`
	Timestamp int64           `json:"timestamp"`
}

// usableSet is the shape of list responses that split resources by access.
type usableSet[T any] struct {
	Usable     []T `json:"usable"`
	Manageable []T `json:"manageable"`
}

// Open logs into the platform. Any failure is a connection error.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, shared.ConnectionError(cfg.BaseURL, fmt.Errorf("invalid server url: %q", cfg.BaseURL))
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, shared.ConnectionError(base, err)
	}

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			t.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true,
				MinVersion:         tls.VersionTLS12,
			}
		}
		transport = t
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = 10 * time.Minute
	}

	s := &Session{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Transport: transport, Jar: jar},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     log.With("server", base),
	}

	if err := s.login(ctx); err != nil {
		return nil, shared.ConnectionError(base, err)
	}
	s.logger.Debug("session opened", "username", cfg.Username)
	return s, nil
}

func (s *Session) login(ctx context.Context) error {
	payload := map[string]string{
		"username": s.cfg.Username,
		"password": s.cfg.Password,
	}
	var out struct {
		Token flexString `json:"token"`
	}
	if err := s.do(ctx, http.MethodPost, "/token", nil, payload, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("login response carried no token")
	}
	s.token = string(out.Token)
	return nil
}

// Close releases the server-side session. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	if s == nil || s.token == "" {
		return nil
	}
	err := s.do(ctx, http.MethodDelete, "/token", nil, nil, nil)
	s.token = ""
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Debug("session closed")
	return nil
}

// do performs a JSON call and decodes envelope.response into out.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxListBody))
	if err != nil {
		return fmt.Errorf("%s %s: read %s: %w", method, path, errBodyPrefix, err)
	}

	env, err := decodeEnvelope(method, path, resp.StatusCode, data)
	if err != nil {
		return err
	}
	if out == nil || len(env.Response) == 0 || string(env.Response) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// stream performs a call whose success body is binary and copies it to w.
func (s *Session) stream(ctx context.Context, method, path string, body any, w io.Writer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExportTimeout)
	defer cancel()

	resp, err := s.send(ctx, method, path, nil, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 || strings.HasPrefix(resp.Header.Get("Content-Type"), contentJSON) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if _, err := decodeEnvelope(method, path, resp.StatusCode, data); err != nil {
			return 0, err
		}
		return 0, &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: "expected binary download, got JSON"}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%s %s: copy %s: %w", method, path, errBodyPrefix, err)
	}
	return n, nil
}

func (s *Session) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := s.baseURL + apiPrefix + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", contentJSON)
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", contentJSON)
	}
	if s.token != "" {
		req.Header.Set(tokenHeader, s.token)
	}

	resource := resourceOf(path)
	start := time.Now()
	resp, err := s.httpClient.Do(req)
	metrics.RemoteRequestDuration.WithLabelValues(resource, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteRequestsTotal.WithLabelValues(resource, method, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	metrics.RemoteRequestsTotal.WithLabelValues(resource, method, strconv.Itoa(resp.StatusCode)).Inc()

	s.logger.Debug("platform request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func decodeEnvelope(method, path string, status int, data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if status >= 400 {
			return nil, &APIError{StatusCode: status, Method: method, Path: path, Message: truncate(string(data), 200)}
		}
		return nil, fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
	}
	if status >= 400 || env.ErrorCode != 0 {
		return nil, &APIError{
			StatusCode: status,
			Code:       env.ErrorCode,
			Message:    strings.TrimSpace(env.ErrorMsg),
			Method:     method,
			Path:       path,
		}
	}
	return &env, nil
}

// resourceOf returns the first path segment, used as a metrics label.
func resourceOf(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// flexString decodes JSON strings and numbers alike. The platform returns
// ids as strings on most endpoints and as numbers on a few.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// unixTime decodes the platform's unix-seconds timestamps (string or number).
// Zero and negative values decode to the zero time.
type unixTime time.Time

func (u *unixTime) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	secs, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil || secs <= 0 {
		*u = unixTime(time.Time{})
		return nil
	}
	*u = unixTime(time.Unix(secs, 0).UTC())
	return nil
}

func (u unixTime) Time() time.Time {
	return time.Time(u)
}

type idRef struct {
	ID string `json:"id"`
}

func idRefs(ids []string) []idRef {
	refs := make([]idRef, len(ids))
	for i, id := range ids {
		refs[i] = idRef{ID: id}
	}
	return refs
}
