package device

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/guonaihong/gout/dataflow"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// StatusError is a non-2xx answer from the RouterOS REST API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: device answered %d: %s", e.Op, e.Code, strings.TrimSpace(e.Body))
}

// RestOptions configures a RestClient
type RestOptions struct {
	BaseURL       string // e.g. http://10.0.0.1:85/rest/ip
	Username      string
	Password      string
	Timeout       time.Duration
	ExistsPattern string
	HTTPClient    *http.Client
}

// RestClient implements HotspotClient over the RouterOS REST API
type RestClient struct {
	baseURL       string
	authorization string
	timeout       time.Duration
	existsPattern string
	httpClient    *http.Client
}

// NewRestClient creates a RouterOS REST client. Credentials are encoded once and
// attached to every call.
func NewRestClient(opts RestOptions) (*RestClient, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("device base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid device base url: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))

	return &RestClient{
		baseURL:       base,
		authorization: "Basic " + auth,
		timeout:       timeout,
		existsPattern: opts.ExistsPattern,
		httpClient:    httpClient,
	}, nil
}

// AddUser issues PUT /hotspot/user
func (c *RestClient) AddUser(ctx context.Context, user *HotspotUser) error {
	if user == nil || user.Name == "" {
		return fmt.Errorf("hotspot user name is required")
	}

	code, body, err := c.do(ctx, http.MethodPut, "/hotspot/user", nil, user)
	if err != nil {
		return fmt.Errorf("create hotspot user: %w", err)
	}
	if isSuccess(code) {
		zap.L().Info("hotspot user created",
			zap.String("namespace", "device"),
			zap.String("user", user.Name),
		)
		return nil
	}
	if matchesExists(c.existsPattern, body) {
		return fmt.Errorf("create hotspot user %s: %w", user.Name, ErrUserExists)
	}
	return &StatusError{Op: "create hotspot user", Code: code, Body: body}
}

// SetUserCredentials issues PATCH /hotspot/user/{name}
func (c *RestClient) SetUserCredentials(ctx context.Context, name, password, macAddress string) error {
	if name == "" {
		return fmt.Errorf("hotspot user name is required")
	}

	payload := map[string]string{"password": password}
	if macAddress != "" {
		payload["mac-address"] = macAddress
	}
	code, body, err := c.do(ctx, http.MethodPatch, "/hotspot/user/"+url.PathEscape(name), nil, payload)
	if err != nil {
		return fmt.Errorf("update hotspot user: %w", err)
	}
	if !isSuccess(code) {
		return &StatusError{Op: "update hotspot user", Code: code, Body: body}
	}

	zap.L().Info("hotspot user password refreshed",
		zap.String("namespace", "device"),
		zap.String("user", name),
	)
	return nil
}

// FindUser issues GET /hotspot/user?name=
func (c *RestClient) FindUser(ctx context.Context, name string) (*HotspotUser, error) {
	code, body, err := c.do(ctx, http.MethodGet, "/hotspot/user", gout.H{"name": name}, nil)
	if err != nil {
		return nil, fmt.Errorf("list hotspot users: %w", err)
	}
	if !isSuccess(code) {
		return nil, &StatusError{Op: "list hotspot users", Code: code, Body: body}
	}

	var users []HotspotUser
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(body, &users); err != nil {
		return nil, fmt.Errorf("decode hotspot users: %w", err)
	}
	for i := range users {
		if users[i].Name == name {
			return &users[i], nil
		}
	}
	return nil, nil
}

// AddActive issues PUT /hotspot/active/add
func (c *RestClient) AddActive(ctx context.Context, session *ActiveSession) error {
	if session == nil {
		return fmt.Errorf("active session is nil")
	}

	code, body, err := c.do(ctx, http.MethodPut, "/hotspot/active/add", nil, session)
	if err != nil {
		return fmt.Errorf("activate hotspot session: %w", err)
	}
	if !isSuccess(code) {
		return &StatusError{Op: "activate hotspot session", Code: code, Body: body}
	}
	return nil
}

// Close is a no-op; the REST transport keeps no connection state.
func (c *RestClient) Close() error {
	return nil
}

func (c *RestClient) do(ctx context.Context, method, path string, query gout.H, payload interface{}) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	g := gout.New(c.httpClient)

	var flow *dataflow.DataFlow
	switch method {
	case http.MethodGet:
		flow = g.GET(target)
	case http.MethodPut:
		flow = g.PUT(target)
	case http.MethodPatch:
		flow = g.PATCH(target)
	default:
		return 0, "", fmt.Errorf("unsupported method %s", method)
	}

	var (
		code int
		body string
	)
	flow = flow.WithContext(ctx).
		SetHeader(gout.H{"Authorization": c.authorization}).
		Code(&code).
		BindBody(&body)
	if query != nil {
		flow = flow.SetQuery(query)
	}
	if payload != nil {
		flow = flow.SetJSON(payload)
	}

	if err := flow.Do(); err != nil {
		return 0, "", err
	}
	return code, body, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
