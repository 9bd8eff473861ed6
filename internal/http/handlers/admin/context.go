package admin

import (
	"github.com/aurelia-shop/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return shared.GetContextUint(c, "admin_id", "invalid admin id", "invalid admin id type")
}
