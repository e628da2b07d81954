package server

import (
	"errors"
	"net/http"
	"strings"

	"campaid/internal"
	"campaid/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	var in loginForm
	if err := s.decodeInput(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		s.writeError(w, r, types.NewValidationError("email", "email and password are required"))
		return
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": in.Password,
		},
	}

	resp, err := s.cognitoClient.InitiateAuth(r.Context(), input)
	if err != nil {
		var notAuthorized *ctypes.NotAuthorizedException
		var notConfirmed *ctypes.UserNotConfirmedException
		if !errors.As(err, &notAuthorized) && !errors.As(err, &notConfirmed) {
			s.logger.WithError(err).Error("cognito login call failed")
		}
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login failed"})
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	s.logger.WithField("email", email).Info("user logged in")

	s.writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": accessToken,
		"expiresIn":   expiresIn,
	})
}

// handlePostLogout signs the user out everywhere and tears down the app
// context. Local cookies are cleared even when the global sign out fails.
func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := r.Context().Value(contextKeyAccessToken).(string)

	_, err := s.cognitoClient.GlobalSignOut(r.Context(), &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		s.logger.WithError(err).Warn("cognito global sign out failed")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
	s.teardownAppContext(w)

	w.WriteHeader(http.StatusNoContent)
}

type campForm struct {
	CampID string `form:"camp_id" json:"campId"`
}

// handlePostCamp selects the camp the session works in.
func (s *Service) handlePostCamp(w http.ResponseWriter, r *http.Request) {
	var in campForm
	if err := s.decodeInput(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(in.CampID) == "" {
		s.writeError(w, r, types.NewValidationError("camp_id", "camp is required"))
		return
	}

	camp, err := s.repos.Camps.Camp(r.Context(), in.CampID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ac := appContextFrom(r.Context())
	ac.CampID = camp.ID
	if err := s.saveAppContext(w, ac); err != nil {
		s.logger.WithError(err).Error("failed to save app context")
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"camp":    camp,
		"context": ac,
	})
}
