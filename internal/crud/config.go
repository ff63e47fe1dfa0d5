package crud

import "github.com/gin-gonic/gin"

// Route controls one generated operation. The zero value enables the
// route with no extra middleware.
type Route struct {
	Disabled   bool
	Middleware []gin.HandlerFunc
}

// Config tunes a resource's generated routes.
type Config struct {
	GetAll    Route
	GetOne    Route
	Create    Route
	Update    Route
	DeleteOne Route
	DeleteAll Route

	// Paginate caps the page size. 0 falls back to the default cap.
	Paginate int
	// Tags feed the generated API documentation only.
	Tags []string
	// DeleteUpdateField names the display column for the soft-delete
	// rename when the descriptor declares none.
	DeleteUpdateField string
	// HardDelete switches delete to physical row removal.
	HardDelete bool
}

// defaultMaxPageSize caps list pages when neither the resource nor the
// deployment configures one.
const defaultMaxPageSize = 50

func (c Config) maxPageSize() int {
	if c.Paginate > 0 {
		return c.Paginate
	}
	return defaultMaxPageSize
}
