package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classfeed/pkg/domain"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(url string) *Client {
	return New(url, "test-api-key", 2*time.Second)
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 400,
		"data":    data,
		"message": message,
	})
}

func TestClientAttachesAPIKeyAndBearer(t *testing.T) {
	var gotAPIKey, gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("X-API-Key")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		writeEnvelope(w, http.StatusOK, domain.User{ID: "user-1"}, "")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokenSource(staticToken("tok-1"))
	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if gotAPIKey != "test-api-key" {
		t.Fatalf("X-API-Key = %q, want test-api-key", gotAPIKey)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if gotRequestID == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestClientOmitsBearerWithoutSession(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, []domain.Post{}, "")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokenSource(staticToken(""))
	if _, err := c.Statuses(context.Background()); err != nil {
		t.Fatalf("statuses: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClientClassifiesStatusCodes(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, status, nil, "nope")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokenSource(staticToken("tok-1"))
	ctx := context.Background()

	status = http.StatusUnauthorized
	if _, err := c.Profile(ctx); !IsAuth(err) {
		t.Fatalf("401 classified as %v, want auth", err)
	}
	status = http.StatusForbidden
	if _, err := c.Profile(ctx); !IsForbidden(err) {
		t.Fatalf("403 classified as %v, want forbidden", err)
	}
	status = http.StatusUnprocessableEntity
	if _, err := c.Profile(ctx); !IsValidation(err) {
		t.Fatalf("422 classified as %v, want validation", err)
	}
	status = http.StatusInternalServerError
	if _, err := c.Profile(ctx); !IsServer(err) {
		t.Fatalf("500 classified as %v, want server", err)
	}
}

func TestClientClassifiesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)
	if _, err := c.Profile(context.Background()); !IsNetwork(err) {
		t.Fatalf("transport failure classified as %v, want network", err)
	}
}

func TestClientRejectsEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "broken"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Profile(context.Background()); !IsServer(err) {
		t.Fatalf("success:false classified as %v, want server", err)
	}
}

func TestClientRejectsShapeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// data should be a post array but comes back as a scalar
		writeEnvelope(w, http.StatusOK, 42, "")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Statuses(context.Background()); !IsServer(err) {
		t.Fatalf("shape mismatch classified as %v, want server", err)
	}
}

func TestClientFiresUnauthorizedHookOnlyForAuthenticatedCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, "expired")
	}))
	defer srv.Close()

	fired := make(chan struct{}, 1)
	c := newTestClient(srv.URL)
	c.SetUnauthorizedHook(func() { fired <- struct{}{} })

	// 1) No token attached: a 401 means bad credentials, not a dead session.
	c.SetTokenSource(staticToken(""))
	if _, err := c.SignIn(context.Background(), "a@kku", "wrong"); !IsAuth(err) {
		t.Fatalf("signin 401 classified as %v, want auth", err)
	}
	select {
	case <-fired:
		t.Fatalf("hook must not fire for unauthenticated calls")
	case <-time.After(50 * time.Millisecond):
	}

	// 2) Token attached: the session is dead, the hook fires.
	c.SetTokenSource(staticToken("tok-1"))
	if _, err := c.Profile(context.Background()); !IsAuth(err) {
		t.Fatalf("profile 401 classified as %v, want auth", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("hook did not fire for authenticated 401")
	}
}

func TestSignInRequiresTokenInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"_id": "user-1", "email": "a@kku"}, "")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.SignIn(context.Background(), "a@kku", "x"); !IsServer(err) {
		t.Fatalf("tokenless signin classified as %v, want server", err)
	}
}

func TestSignInDecodesTokenAndProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/signin" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "a@kku" || creds["password"] != "x" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "invalid credentials")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"_id":   "user-1",
			"email": "a@kku",
			"token": "tok-xyz",
		}, "")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	sess, err := c.SignIn(context.Background(), "a@kku", "x")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if sess.Token != "tok-xyz" || sess.User.ID != "user-1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}
