package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/chatdesk/config"
	"github.com/cppla/chatdesk/controllers"
	"github.com/cppla/chatdesk/middleware"
	"github.com/cppla/chatdesk/services"
	"github.com/cppla/chatdesk/utils"
	"github.com/cppla/chatdesk/web"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Chat  *services.ChatService
	Files *services.FileService
	// MediaDir is served under cfg.MediaURLPrefix when blobs live on local disk.
	MediaDir string
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Dependencies) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.SetHTMLTemplate(web.Templates())
	if deps.MediaDir != "" {
		r.Static(cfg.MediaURLPrefix, deps.MediaDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	chatController := controllers.NewChatController(deps.Chat)
	fileController := controllers.NewFileController(deps.Files)
	limited := middleware.RateLimitMiddleware(cfg.RateLimitPerMin)

	r.GET("/", chatController.Index)
	r.POST("/chat", limited, chatController.Chat)
	r.GET("/history", chatController.History)
	r.POST("/clear", chatController.Clear)
	r.GET("/sessions", middleware.TokenRequired(cfg.DiagnosticsToken), chatController.Sessions)

	r.POST("/upload", limited, fileController.Upload)
	r.GET("/files", fileController.List)
	r.POST("/delete-file", fileController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
