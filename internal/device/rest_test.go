package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-routeros/routeros/v3/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]interface{}
}

func newFakeRouter(t *testing.T, handler func(w http.ResponseWriter, call recordedCall)) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query().Get("name"),
			Auth:   r.Header.Get("Authorization"),
		}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &call.Body)
		}
		calls = append(calls, call)
		handler(w, call)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestRestClient(t *testing.T, baseURL string) *RestClient {
	t.Helper()
	c, err := NewRestClient(RestOptions{
		BaseURL:  baseURL + "/rest/ip",
		Username: "admin",
		Password: "pw",
		Timeout:  2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestRestAddUserCreated(t *testing.T) {
	srv, calls := newFakeRouter(t, func(w http.ResponseWriter, call recordedCall) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{".id":"*1"}`))
	})
	c := newTestRestClient(t, srv.URL)

	err := c.AddUser(context.Background(), &HotspotUser{
		Name:       "a@b.com",
		Password:   "AA:BB:CC:DD:EE:FF",
		MacAddress: "AA:BB:CC:DD:EE:FF",
		Profile:    "default",
		Comment:    "AutoReg a@b.com",
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, "/rest/ip/hotspot/user", call.Path)
	assert.Equal(t, "Basic YWRtaW46cHc=", call.Auth)
	assert.Equal(t, "a@b.com", call.Body["name"])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", call.Body["mac-address"])
	assert.Equal(t, "default", call.Body["profile"])
}

func TestRestAddUserAlreadyExists(t *testing.T) {
	srv, _ := newFakeRouter(t, func(w http.ResponseWriter, call recordedCall) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":400,"message":"Bad Request","detail":"failure: already have user with this name"}`))
	})
	c := newTestRestClient(t, srv.URL)

	err := c.AddUser(context.Background(), &HotspotUser{Name: "a@b.com", Password: "x"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRestAddUserUnexpectedFailure(t *testing.T) {
	srv, _ := newFakeRouter(t, func(w http.ResponseWriter, call recordedCall) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":500,"detail":"profile not found"}`))
	})
	c := newTestRestClient(t, srv.URL)

	err := c.AddUser(context.Background(), &HotspotUser{Name: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUserExists))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestRestSetUserCredentials(t *testing.T) {
	srv, calls := newFakeRouter(t, func(w http.ResponseWriter, call recordedCall) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	c := newTestRestClient(t, srv.URL)

	require.NoError(t, c.SetUserCredentials(context.Background(), "a@b.com", "secret", ""))
	require.NoError(t, c.SetUserCredentials(context.Background(), "a@b.com", "secret", "AA:BB:CC:DD:EE:FF"))

	require.Len(t, *calls, 2)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPatch, call.Method)
	assert.Equal(t, "/rest/ip/hotspot/user/a@b.com", call.Path)
	assert.Equal(t, map[string]interface{}{"password": "secret"}, call.Body)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", (*calls)[1].Body["mac-address"])
}

func TestRestFindUser(t *testing.T) {
	srv, calls := newFakeRouter(t, func(w http.ResponseWriter, call recordedCall) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{".id":"*2","name":"a@b.com","profile":"default"}]`))
	})
	c := newTestRestClient(t, srv.URL)

	user, err := c.FindUser(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "default", user.Profile)
	assert.Equal(t, "a@b.com", (*calls)[0].Query)

	missing, err := c.FindUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRestAddActive(t *testing.T) {
	srv, calls := newFakeRouter(t, func(w http.ResponseWriter, call recordedCall) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	c := newTestRestClient(t, srv.URL)

	err := c.AddActive(context.Background(), &ActiveSession{
		User:       "a@b.com",
		Password:   "never-sent",
		Address:    "10.0.0.5",
		MacAddress: "AA:BB:CC:DD:EE:FF",
	})
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, "/rest/ip/hotspot/active/add", call.Path)
	assert.Equal(t, "10.0.0.5", call.Body["address"])
	assert.NotContains(t, call.Body, "password")
}

func TestRestUnreachableDevice(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newTestRestClient(t, base)
	err := c.AddUser(context.Background(), &HotspotUser{Name: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUserExists))
}

func TestRestHangingDeviceTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewRestClient(RestOptions{BaseURL: srv.URL + "/rest/ip", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = c.AddUser(context.Background(), &HotspotUser{Name: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUserExists))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewRestClientRequiresBaseURL(t *testing.T) {
	_, err := NewRestClient(RestOptions{})
	assert.Error(t, err)
}

func TestMatchesExists(t *testing.T) {
	assert.True(t, matchesExists("", "failure: Already have user with this name"))
	assert.True(t, matchesExists("duplicate", "duplicate entry"))
	assert.False(t, matchesExists("", "invalid profile"))
}

func TestParseUserSentence(t *testing.T) {
	s := &proto.Sentence{Map: map[string]string{
		"name":        "a@b.com",
		"mac-address": "AA:BB:CC:DD:EE:FF",
		"profile":     "default",
	}}
	u := parseUserSentence(s)
	assert.Equal(t, "a@b.com", u.Name)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", u.MacAddress)
	assert.Empty(t, parseUserSentence(nil).Name)
}
