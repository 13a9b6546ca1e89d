package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// fallbackHash is compared against when a login username has no account.
// Running the bcrypt comparison either way keeps the response time flat, so
// failed logins don't reveal which usernames exist.
var fallbackHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-user"), bcrypt.DefaultCost)

// login checks username/password and hands back the account's API token.
// POST /api/login (public).
func (h *Handler) login(c *gin.Context) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, lookupErr := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE username = @username",
		pgx.NamedArgs{"username": creds.Username})

	hash := string(fallbackHash)
	if lookupErr == nil {
		hash = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password))

	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": u.AuthToken, "user_id": u.ID})
}

// authMiddleware resolves the Bearer token to an account and stores user_id
// on the request context for the handlers downstream.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	const prefix = "Bearer "
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) {
			apiError(c, http.StatusUnauthorized, "bearer token required")
			c.Abort()
			return
		}

		var userID int
		err := h.db.QueryRow(c, "SELECT id FROM users WHERE auth_token = $1",
			strings.TrimPrefix(header, prefix)).Scan(&userID)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "unrecognized token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
