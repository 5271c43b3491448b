package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam разбирает числовой параметр маршрута и кладет готовый uint
// в контекст Gin под contextKey. Нечисловые, отрицательные и нулевые значения
// обрываются со статусом 400 до входа в обработчик: идентификаторы сущностей
// начинаются с единицы, ноль означает опечатку в URL.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("%s must be a positive integer", paramName),
			})
			c.Abort()
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}
