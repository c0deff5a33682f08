package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	apiContext "qrgen/internal/api/context"
	"qrgen/internal/engine/session"
	"qrgen/internal/engine/workflow"
	"qrgen/internal/pkg/errors"
	"qrgen/internal/platform/auth"
)

// SessionMiddleware resolves the caller's workflow from the signed session
// cookie, issuing a new session when the cookie is missing or invalid.
// Identify and Attach are separate steps so a rate limiter can run between
// them, before any registry entry exists.
type SessionMiddleware struct {
	tokenSvc   *auth.TokenService
	registry   *session.Registry
	cookieName string
}

func NewSessionMiddleware(tokenSvc *auth.TokenService, registry *session.Registry, cookieName string) *SessionMiddleware {
	if cookieName == "" {
		cookieName = "qrgen_session"
	}
	return &SessionMiddleware{
		tokenSvc:   tokenSvc,
		registry:   registry,
		cookieName: cookieName,
	}
}

// Identify puts the caller's session id in the context, setting a fresh
// cookie when none is valid.
func (m *SessionMiddleware) Identify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if id, err := m.tokenSvc.ValidateSessionToken(cookie.Value); err == nil {
				sessionID = id
			} else {
				log.Debug().Err(err).Msg("discarding invalid session cookie")
			}
		}

		issued := false
		if sessionID == "" {
			sessionID = session.NewID()
			token, err := m.tokenSvc.GenerateSessionToken(sessionID)
			if err != nil {
				errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to start session", nil)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.tokenSvc.TTL().Seconds()),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			issued = true
		}

		ctx := context.WithValue(r.Context(), apiContext.SessionID, sessionID)
		ctx = context.WithValue(ctx, apiContext.SessionIssued, issued)
		next(w, r.WithContext(ctx))
	}
}

// Attach loads the identified session's workflow, creating it on first use.
func (m *SessionMiddleware) Attach(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _ := r.Context().Value(apiContext.SessionID).(string)
		if sessionID == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No session", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Workflow, m.registry.Get(sessionID))
		next(w, r.WithContext(ctx))
	}
}

// WorkflowFrom returns the workflow injected by SessionMiddleware.
func WorkflowFrom(ctx context.Context) (*workflow.Workflow, bool) {
	wf, ok := ctx.Value(apiContext.Workflow).(*workflow.Workflow)
	return wf, ok && wf != nil
}
