package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"metrics-monitor/internal/auth"
	"metrics-monitor/internal/util"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Authenticator checks credentials and issues tokens; *auth.Manager
// satisfies it.
type Authenticator interface {
	Authenticate(username, password string) (string, error)
	GenerateToken(username, role string) (string, error)
}

type Login struct {
	Response APIResponse
	logger   *util.MetricsLogger
	auth     Authenticator
}

func (l *Login) Init(authenticator Authenticator, webSlogger *util.MetricsLogger) {
	l.auth = authenticator
	l.logger = webSlogger
}

func (l *Login) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		l.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
		return
	}

	role, err := l.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			l.logger.LogEvent(util.LOG_LEVEL_WARN, "login rejected for", req.Username)
		} else {
			l.logger.LogEvent(util.LOG_LEVEL_ERROR, "login failed for", req.Username+":", err)
		}
		l.Response.WriteErrorResponseWithStatusCode(w, auth.ErrInvalidCredentials, http.StatusUnauthorized)
		return
	}

	token, err := l.auth.GenerateToken(req.Username, role)
	if err != nil {
		l.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while signing token. Err -", err)
		l.Response.WriteErrorResponseWithStatusCode(w, err, http.StatusInternalServerError)
		return
	}
	l.Response.WriteResultResponse(w, LoginResponse{Token: token})
}
