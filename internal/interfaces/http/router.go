// Package http assembles the gin engine: middleware stack, session
// endpoints, generated CRUD resources and the API documentation.
package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/cache"
	"keel/internal/infrastructure/config"
	"keel/internal/interfaces/http/handlers"
	"keel/internal/interfaces/http/middleware"
	"keel/internal/shared/logger"
	"keel/internal/shared/response"

	_ "keel/docs"
)

// Router holds the engine and the wired handlers.
type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	db          *gorm.DB
	authn       *auth.Authenticator
	authHandler *handlers.AuthHandler
	resources   *handlers.Resources
	log         logger.Interface
}

// NewRouter wires the auth stack and the resource handlers.
func NewRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, log logger.Interface) (*Router, error) {
	engine := gin.New()

	if err := handlers.RegisterValidations(); err != nil {
		return nil, fmt.Errorf("failed to register binding validations: %w", err)
	}

	hasher := auth.NewBcryptPasswordHasher(cfg.Auth.BcryptCost)
	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Server.SiteName, cfg.Auth.JWT.AccessExpMinutes)
	permCache := cache.NewPermissionCache(rdb, log)

	whitelist, err := auth.CompileWhitelist(auth.DefaultWhitelist())
	if err != nil {
		return nil, fmt.Errorf("failed to compile route whitelist: %w", err)
	}
	authn := auth.NewAuthenticator(jwtSvc, permCache, whitelist, log)

	return &Router{
		engine:      engine,
		cfg:         cfg,
		db:          db,
		authn:       authn,
		authHandler: handlers.NewAuthHandler(db, jwtSvc, hasher, permCache, authn, log),
		resources:   handlers.NewResources(db, rdb, hasher, cfg.CRUD, log),
		log:         log,
	}, nil
}

// SetupRoutes configures the middleware stack and mounts every route.
func (r *Router) SetupRoutes() error {
	r.engine.Use(middleware.Logger(r.log))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.CORS(r.cfg.Server.CORSOrigins))
	r.engine.Use(middleware.SecurityHeaders())

	if gin.Mode() != gin.ReleaseMode {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.engine.GET("/health", health)

	v1 := r.engine.Group(r.cfg.Server.URLPrefix + "/api/v1")
	r.authHandler.RegisterRoutes(v1)

	protected := v1.Group("", middleware.RequireAuth(r.authn))
	protected.Use(middleware.OperationRecorder(r.db, r.cfg.Server.SiteName, r.log))
	return r.resources.Register(protected)
}

func health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

// GetEngine returns the gin engine.
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server on the configured address.
func (r *Router) Run() error {
	return r.engine.Run(fmt.Sprintf("%s:%d", r.cfg.Server.Host, r.cfg.Server.Port))
}
