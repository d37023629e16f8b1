package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ordergrid/ordergrid/internal/config"
	"github.com/ordergrid/ordergrid/internal/db"
	"github.com/ordergrid/ordergrid/internal/http/api/admin"
	"github.com/ordergrid/ordergrid/internal/http/api/front"
	internalsettings "github.com/ordergrid/ordergrid/internal/settings"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSnapshot := internalsettings.LoadSnapshot(conn); errSnapshot != nil {
		return errSnapshot
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)
	serverConfig, _ := config.LoadServerConfig(configPath)
	if serverConfig.Port <= 0 {
		if defaultPort <= 0 {
			defaultPort = config.DefaultPort
		}
		serverConfig.Port = defaultPort
	}

	if !serverConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogMiddleware())

	admin.RegisterAdminRoutes(engine, conn, jwtConfig)
	front.RegisterFrontRoutes(engine, conn, jwtConfig)

	addr := fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s with config=%s", addr, configPath)
		if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
			errCh <- errListen
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
		return <-errCh
	case errServe := <-errCh:
		return errServe
	}
}

// requestLogMiddleware logs each request with method, path, status, and
// latency.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}
