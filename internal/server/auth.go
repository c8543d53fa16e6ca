package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/models"
)

const (
	tokenTTL    = 24 * time.Hour
	tokenIssuer = "greenorbit"
)

type ctxKey string

const userKey ctxKey = "user"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Success bool        `json:"success"`
	User    models.User `json:"user"`
	Token   string      `json:"token"`
}

// signToken creates an HS256 token with 24h expiration
func signToken(secret string, u models.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  u.Role,
		"exp":   now.Add(tokenTTL).Unix(),
		"iat":   now.Unix(),
		"iss":   tokenIssuer,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", eris.Wrap(err, "server: sign token")
	}
	return signed, nil
}

// parseToken validates the token and returns the user it was issued to
func parseToken(secret, raw string) (models.User, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return models.User{}, eris.New("server: invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, eris.New("server: invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.User{}, eris.New("server: no subject")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return models.User{ID: sub, Email: email, Role: role}, nil
}

// requireRole rejects requests without a bearer token for the role
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			u, err := parseToken(s.opts.JWTSecret, strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if u.Role != role {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// handleLogin accepts any email and password; there is no credential store
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleFarmer
	}
	if role != models.RoleFarmer && role != models.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be farmer or admin")
		return
	}

	u := models.User{
		ID:    "USER-" + strings.ToUpper(uuid.NewString()[:8]),
		Email: strings.ToLower(req.Email),
		Role:  role,
		Name:  displayName(req.Email),
	}
	token, err := signToken(s.opts.JWTSecret, u, s.now())
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: u, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func displayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return "User"
	}
	return name
}
