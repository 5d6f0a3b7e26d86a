package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cric2000/Amazon-price-tracker/pkg/helpers"
	"github.com/cric2000/Amazon-price-tracker/pkg/response"
)

// Auth validates the access_token cookie and requires a live Redis session for
// the user. On success it sets userID, userEmail, and userName in the context.
func Auth(jwt *helpers.JWTManager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "authentication required", nil)
			c.Abort()
			return
		}

		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}

		if rdb != nil {
			sess, err := rdb.HGetAll(c.Request.Context(), "user:session:"+claims.UserID).Result()
			if err != nil || len(sess) == 0 {
				response.Error[any](c, http.StatusUnauthorized, "session expired", nil)
				c.Abort()
				return
			}
			c.Set("userEmail", sess["email"])
			c.Set("userName", sess["name"])
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}
