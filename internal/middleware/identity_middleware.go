package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RequireUserID извлекает идентификатор пользователя из заголовка X-User-ID
// и кладет его в контекст Gin под ключом "userID".
// Аутентификация выполняется вышестоящим шлюзом: сервис доверяет заголовку
// и отвечает 401 только на его отсутствие или нечисловое значение.
func RequireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
			c.Abort()
			return
		}

		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || userID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid X-User-ID header"})
			c.Abort()
			return
		}

		c.Set("userID", uint(userID))
		c.Next()
	}
}
