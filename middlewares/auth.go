package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/models"
)

// Authenticate resolves the session token from the Authorization header (or
// the token query parameter, for GET endpoints) to its owning user via the
// credential store and stores the identity on the request context. The
// lookup is a pure read; expired tokens disappear when the daily sweep
// removes them from the store.
func Authenticate(users models.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "error": "Not authenticated."})
			return
		}

		u, err := users.FindByToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "error": "Not authenticated."})
			return
		}

		c.Set("userId", u.ID)
		c.Set("username", u.Username)
		c.Set("email", u.Email)
		c.Next()
	}
}
