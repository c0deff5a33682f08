package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	apiContext "qrgen/internal/api/context"
	"qrgen/internal/engine/qr"
	"qrgen/internal/engine/session"
	"qrgen/internal/engine/workflow"
	"qrgen/internal/platform/auth"
	"qrgen/internal/platform/config"
)

func newTestSessionMiddleware(t *testing.T) (*SessionMiddleware, *session.Registry, *auth.TokenService) {
	t.Helper()
	tokenSvc, err := auth.NewTokenService(config.SessionConfig{Secret: "secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	registry := session.NewRegistry(func(id string) *workflow.Workflow {
		return workflow.New(qr.NewEncoder(), workflow.WithID(id), workflow.WithLogger(zerolog.Nop()))
	})
	return NewSessionMiddleware(tokenSvc, registry, "qrgen_session"), registry, tokenSvc
}

func TestSessionMiddleware(t *testing.T) {
	m, registry, tokenSvc := newTestSessionMiddleware(t)

	t.Run("New Session", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()

		var gotID string
		m.Identify(m.Attach(func(w http.ResponseWriter, r *http.Request) {
			gotID, _ = r.Context().Value(apiContext.SessionID).(string)
			if _, ok := WorkflowFrom(r.Context()); !ok {
				t.Error("workflow missing from context")
			}
			w.WriteHeader(http.StatusOK)
		}))(rr, req)

		cookies := rr.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "qrgen_session" {
			t.Fatalf("expected session cookie, got %v", cookies)
		}
		id, err := tokenSvc.ValidateSessionToken(cookies[0].Value)
		if err != nil {
			t.Fatalf("issued cookie does not validate: %v", err)
		}
		if id != gotID {
			t.Errorf("cookie session %s != context session %s", id, gotID)
		}
	})

	t.Run("Existing Session", func(t *testing.T) {
		token, _ := tokenSvc.GenerateSessionToken("known")
		registry.Get("known").SetInput("kept")

		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "qrgen_session", Value: token})
		rr := httptest.NewRecorder()

		m.Identify(m.Attach(func(w http.ResponseWriter, r *http.Request) {
			wf, _ := WorkflowFrom(r.Context())
			if got := wf.Snapshot().Text; got != "kept" {
				t.Errorf("workflow text = %q, want kept", got)
			}
		}))(rr, req)

		if len(rr.Result().Cookies()) != 0 {
			t.Error("valid session was reissued")
		}
	})

	t.Run("Tampered Cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "qrgen_session", Value: "forged"})
		rr := httptest.NewRecorder()

		m.Identify(m.Attach(func(w http.ResponseWriter, r *http.Request) {
			if id, _ := r.Context().Value(apiContext.SessionID).(string); id == "" || id == "forged" {
				t.Errorf("unexpected session id %q", id)
			}
		}))(rr, req)

		if len(rr.Result().Cookies()) != 1 {
			t.Error("expected a fresh cookie for a forged token")
		}
	})
}

func TestSessionMiddleware_IdentifyDoesNotAllocate(t *testing.T) {
	m, registry, _ := newTestSessionMiddleware(t)

	var issued bool
	m.Identify(func(w http.ResponseWriter, r *http.Request) {
		issued, _ = r.Context().Value(apiContext.SessionIssued).(bool)
		if _, ok := WorkflowFrom(r.Context()); ok {
			t.Error("workflow attached before Attach ran")
		}
	})(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !issued {
		t.Error("new session not flagged as issued")
	}
	if registry.Len() != 0 {
		t.Errorf("registry has %d sessions, want 0", registry.Len())
	}

	rr := httptest.NewRecorder()
	m.Attach(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Attach ran the handler without a session id")
	})(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Attach without session status = %d, want 401", rr.Code)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{})
	defer rl.Stop()

	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("k", 3) {
			t.Fatalf("request %d rejected within budget", i)
		}
	}
	if rl.Allow("k", 3) {
		t.Error("request over budget allowed")
	}

	// 3 per minute refills one token every 20s.
	now = now.Add(21 * time.Second)
	if !rl.Allow("k", 3) {
		t.Error("request rejected after refill")
	}

	now = now.Add(11 * time.Minute)
	rl.cleanup(10 * time.Minute)
	if _, ok := rl.store.Load("k"); ok {
		t.Error("idle bucket survived cleanup")
	}
}

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{GeneratePerMinute: 1})
	defer rl.Stop()

	handler := rl.Limit(LimitGenerate)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	newReq := func() *http.Request {
		req := httptest.NewRequest("POST", "/api/v1/generate", nil)
		return req.WithContext(context.WithValue(req.Context(), apiContext.SessionID, "s1"))
	}

	rr := httptest.NewRecorder()
	handler(rr, newReq())
	if rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler(rr, newReq())
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After header")
	}

	// The API budget is zero, so it is unlimited.
	unlimited := rl.Limit(LimitAPI)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i := 0; i < 5; i++ {
		rr = httptest.NewRecorder()
		unlimited(rr, newReq())
		if rr.Code != http.StatusOK {
			t.Fatalf("unlimited request %d status = %d", i, rr.Code)
		}
	}
}

func TestRateLimiter_LimitIssuedSessionsByIP(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{GeneratePerMinute: 1})
	defer rl.Stop()

	handler := rl.Limit(LimitGenerate)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	newReq := func(sessionID, remoteAddr string) *http.Request {
		req := httptest.NewRequest("POST", "/api/v1/generate", nil)
		req.RemoteAddr = remoteAddr
		ctx := context.WithValue(req.Context(), apiContext.SessionID, sessionID)
		ctx = context.WithValue(ctx, apiContext.SessionIssued, true)
		return req.WithContext(ctx)
	}

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{name: "First Fresh Session", req: newReq("a", "10.0.0.1:1000"), wantStatus: http.StatusOK},
		{name: "Second Fresh Session Same IP", req: newReq("b", "10.0.0.1:2000"), wantStatus: http.StatusTooManyRequests},
		{name: "Fresh Session Other IP", req: newReq("c", "10.0.0.2:1000"), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler(rr, tt.req)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}
