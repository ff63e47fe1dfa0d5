package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"keel/internal/infrastructure/persistence/models"
	"keel/internal/shared/logger"
)

// maxRecordedBody caps how much of a request body ends up in the audit
// trail.
const maxRecordedBody = 4 << 10

// OperationRecorder persists an audit row for every mutating request.
// The body is captured only when it is valid JSON; credential endpoints
// are skipped entirely.
func OperationRecorder(db *gorm.DB, app string, log logger.Interface) gin.HandlerFunc {
	log = log.Named("audit")
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/refresh") {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxRecordedBody))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
		}

		c.Next()

		payload := PayloadFromContext(c)
		if payload.IsAnonymous() {
			return
		}

		record := models.OperationRecord{
			UserID:   payload.Data.ID,
			Username: payload.Data.Username,
			Name:     payload.Data.Name,
			LoginIP:  c.ClientIP(),
			Method:   models.PermissionMethod(method),
			URI:      path,
			App:      app,
			Module:   moduleOf(path),
		}
		if json.Valid(body) {
			record.Data = datatypes.JSON(body)
		}
		if err := db.WithContext(c.Request.Context()).Create(&record).Error; err != nil {
			log.Warnw("failed to persist operation record", "uri", path, "error", err)
		}
	}
}

// moduleOf extracts the resource segment from a versioned API path,
// e.g. /api/v1/user/42 yields "user".
func moduleOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if len(part) > 1 && part[0] == 'v' && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}
