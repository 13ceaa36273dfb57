package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rogerio-castellano/inventory-orders/internal/auth"
)

// LoginHandler godoc
// @Summary Authenticate the admin and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body UserLogin true "username and password"
// @Success 200 {object} LoginResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds UserLogin
	if err := readJSON(w, r, &creds); err != nil {
		s.badRequest(w, "invalid input")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		s.badRequest(w, "missing credentials")
		return
	}

	token, err := s.auth.Login(creds.Username, creds.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Info("login refused", zap.String("username", creds.Username))
		s.respond(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err != nil {
		s.logger.Error("token generation failed", zap.Error(err))
		s.respond(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to generate token"})
		return
	}
	s.respond(w, http.StatusOK, LoginResult{Token: token})
}
