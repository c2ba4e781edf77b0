// Package apierror writes the JSON error bodies shared by all handlers.
package apierror

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"go.uber.org/zap"
)

// GenericMessage is shown to users for any backend failure
const GenericMessage = "Something went wrong"

// Internal logs err and responds with a generic 500. The detailed message
// is only logged.
func Internal(c *gin.Context, msg string, err error) {
	logger.Ctx(c.Request.Context()).Error(msg,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": GenericMessage})
}

// Locked responds 403 with an upgrade prompt instead of a plain denial.
// upgradeOptions may be nil.
func Locked(c *gin.Context, msg string, upgradeOptions interface{}) {
	body := gin.H{"error": msg, "locked": true}
	if upgradeOptions != nil {
		body["upgrade_options"] = upgradeOptions
	}
	c.JSON(http.StatusForbidden, body)
}
