package public

import (
	"github.com/aurelia-shop/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return shared.GetContextUint(c, "user_id", "invalid user id", "invalid user id type")
}
