// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
)

// respondServiceError maps a service failure to an HTTP status and a safe
// message. The raw error never reaches the client.
func respondServiceError(c *gin.Context, err error) {
	message := "request failed"
	var se *servicerror.Error
	if errors.As(err, &se) {
		message = se.Reason
	}

	switch servicerror.KindOf(err) {
	case servicerror.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
	case servicerror.KindPrecondition:
		c.JSON(http.StatusForbidden, gin.H{"error": message})
	case servicerror.KindConfiguration:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal configuration error"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream operation failed"})
	}
}
