package middleware

import (
	"fleettrack/utils"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorHandler provides panic recovery and a last-resort translation of errors
// attached to the gin context. Controllers normally respond through
// utils.ServiceErrorResponse themselves; this catches what slips past.
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			eh.handleGinErrors(c)
		}
	})
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic":       err,
		"stack":       string(debug.Stack()),
		"request_id":  c.GetString("request_id"),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"reporter_id": c.GetString("reporterID"),
	}).Error("Panic recovered")

	var details interface{}
	if eh.environment == "development" {
		details = map[string]interface{}{
			"panic": err,
			"stack": string(debug.Stack()),
		}
	}

	utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", details)
	c.Abort()
}

func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	lastError := c.Errors.Last()
	if lastError == nil {
		return
	}

	for _, ginErr := range c.Errors {
		eh.logError(c, ginErr.Err)
	}

	eh.processError(c, lastError.Err)
}

func (eh *ErrorHandler) logError(c *gin.Context, err error) {
	fields := logrus.Fields{
		"error":       err.Error(),
		"request_id":  c.GetString("request_id"),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"reporter_id": c.GetString("reporterID"),
		"ip":          c.ClientIP(),
	}

	if utils.IsServiceError(err) {
		eh.logger.WithFields(fields).Warn("Request error")
	} else {
		eh.logger.WithFields(fields).Error("Server error")
	}
}

func (eh *ErrorHandler) processError(c *gin.Context, err error) {
	switch {
	case utils.IsServiceError(err):
		utils.ServiceErrorResponse(c, err)

	case mongo.IsDuplicateKeyError(err):
		utils.ErrorResponse(c, http.StatusConflict, "Resource already exists", nil)

	case err == mongo.ErrNoDocuments:
		utils.ErrorResponse(c, http.StatusNotFound, "Resource not found", nil)

	case mongo.IsTimeout(err):
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "Database operation timed out", nil)

	case mongo.IsNetworkError(err):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database connection error", nil)

	default:
		var details interface{}
		if eh.environment == "development" {
			details = map[string]interface{}{"original_error": err.Error()}
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred", details)
	}
	c.Abort()
}
