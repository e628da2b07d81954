package server

import (
	"context"
	"net/http"

	"campaid/pkg/types"
)

// AppContext is the per-session state the handlers share: who is signed in
// and which camp they are working in. It is cached in an encrypted cookie
// and always checked against the verified token subject.
type AppContext struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	CampID string `json:"campId,omitempty"`
}

// InitAppContext loads the cached AppContext. A cache written for another
// user is discarded.
func (s *Service) InitAppContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(contextKeyUserID).(string)
		email, _ := r.Context().Value(contextKeyEmail).(string)

		ac := s.loadAppContext(w, r, userID)
		if ac == nil {
			ac = &AppContext{UserID: userID}
		}
		ac.Email = email

		ctx := context.WithValue(r.Context(), contextKeyAppContext, ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) loadAppContext(w http.ResponseWriter, r *http.Request, userID string) *AppContext {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil {
		return nil
	}

	var ac AppContext
	if err := s.cookie.Decode(s.config.CookieName, cookie.Value, &ac); err != nil {
		s.logger.WithError(err).Info("discarding unreadable app context")
		s.teardownAppContext(w)
		return nil
	}

	if ac.UserID != userID {
		s.logger.WithField("cached_user_id", ac.UserID).WithField("user_id", userID).
			Warn("discarding app context cached for another user")
		s.teardownAppContext(w)
		return nil
	}

	return &ac
}

func (s *Service) saveAppContext(w http.ResponseWriter, ac *AppContext) error {
	encoded, err := s.cookie.Encode(s.config.CookieName, ac)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    encoded,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.config.SessionMaxAgeSec,
		Path:     "/",
	})
	return nil
}

func (s *Service) teardownAppContext(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func appContextFrom(ctx context.Context) *AppContext {
	ac, _ := ctx.Value(contextKeyAppContext).(*AppContext)
	if ac == nil {
		return &AppContext{}
	}
	return ac
}

// campID returns the camp selected for the session.
func campID(r *http.Request) (string, error) {
	ac := appContextFrom(r.Context())
	if ac.CampID == "" {
		return "", types.NewValidationError("camp_id", "select a camp first")
	}
	return ac.CampID, nil
}
