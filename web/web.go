// Package web provides the authgate HTTP server: routing, templates, session
// middleware and background job scheduling.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/authgate/authgate/config"
	"github.com/authgate/authgate/database"
	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/crypto"
	"github.com/authgate/authgate/web/cache"
	"github.com/authgate/authgate/web/controller"
	"github.com/authgate/authgate/web/job"
	"github.com/authgate/authgate/web/locale"
	"github.com/authgate/authgate/web/middleware"
	"github.com/authgate/authgate/web/network"
	"github.com/authgate/authgate/web/service"
	"github.com/authgate/authgate/web/sessionstore"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

//go:embed assets
var assetsFS embed.FS

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

var startTime = time.Now()

type wrapAssetsFS struct {
	embed.FS
}

func (f *wrapAssetsFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open("assets/" + name)
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFile{File: file}, nil
}

type wrapAssetsFile struct {
	fs.File
}

func (f *wrapAssetsFile) Stat() (fs.FileInfo, error) {
	info, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFileInfo{FileInfo: info}, nil
}

// Embedded files report the start time so that caches revalidate after an upgrade.
type wrapAssetsFileInfo struct {
	fs.FileInfo
}

func (f *wrapAssetsFileInfo) ModTime() time.Time {
	return startTime
}

// Server is the authgate web server with its stores, controllers and scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index *controller.IndexController
	panel *controller.PanelController
	api   *controller.APIController

	users *service.UserService
	auth  *service.AuthService
	store *sessionstore.Store

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
// The database must be initialized before Start.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

// getHtmlFiles walks the local `web/html` directory and returns a list of
// template file paths. Used only in debug/development mode.
func (s *Server) getHtmlFiles() ([]string, error) {
	files := make([]string, 0)
	dir, _ := os.Getwd()
	err := fs.WalkDir(os.DirFS(dir), "web/html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// getHtmlTemplate parses embedded HTML templates from the bundled `htmlFS`.
func (s *Server) getHtmlTemplate() (*template.Template, error) {
	t := template.New("")
	err := fs.WalkDir(htmlFS, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			newT, err := t.ParseFS(htmlFS, path+"/*.html")
			if err != nil {
				// ignore folders without matches
				return nil
			}
			t = newT
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// initServices wires the credential store, the password hasher and the session store.
func (s *Server) initServices() error {
	s.users = service.NewUserService(database.GetDB())
	s.auth = service.NewAuthService(s.users, crypto.NewBcrypt(config.GetBcryptCost()))

	secret := []byte(config.GetSessionSecret())
	switch config.GetSessionStore() {
	case config.SessionStoreDatabase:
		s.store = sessionstore.NewDatabaseStore(database.GetDB(), secret)
	default:
		if err := cache.InitRedis(config.GetRedisAddr(), config.GetRedisPassword()); err != nil {
			return err
		}
		s.store = sessionstore.NewRedisStore(cache.GetClient(), secret)
	}
	s.store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   config.GetSessionMaxAge() * 60,
		Secure:   config.IsCookieSecure(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Infof("session store: %s", config.GetSessionStore())
	return nil
}

// initRouter initializes Gin, registers middleware, templates, static assets,
// controllers and returns the configured engine.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	if domain := config.GetDomain(); domain != "" {
		engine.Use(middleware.DomainValidatorMiddleware(domain))
	}
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/api/"}),
	))

	if err := locale.InitLocalizer(i18nFS); err != nil {
		return nil, err
	}
	engine.Use(locale.LocalizerMiddleware())

	// Static files & templates
	if config.IsDebug() {
		files, err := s.getHtmlFiles()
		if err != nil {
			return nil, err
		}
		engine.LoadHTMLFiles(files...)
		engine.StaticFS("/assets", http.FS(os.DirFS("web/assets")))
	} else {
		tpl, err := s.getHtmlTemplate()
		if err != nil {
			return nil, err
		}
		engine.SetHTMLTemplate(tpl)
		engine.StaticFS("/assets", http.FS(&wrapAssetsFS{FS: assetsFS}))
	}

	cookieName := config.GetSessionCookieName()
	g := engine.Group("/")
	g.Use(middleware.NoStore())
	g.Use(sessions.Sessions(cookieName, s.store))
	g.Use(middleware.IdentityGate(s.store, cookieName, s.auth, controller.RenderUnavailable))

	s.index = controller.NewIndexController(g, s.auth, s.store, cookieName)
	s.panel = controller.NewPanelController(g, s.users)
	s.api = controller.NewAPIController(g, s.users)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// Handler builds the HTTP handler without listening. Used by Start and in tests.
func (s *Server) Handler() (http.Handler, error) {
	if err := s.initServices(); err != nil {
		return nil, err
	}
	return s.initRouter()
}

// startTask schedules background jobs.
func (s *Server) startTask() {
	if config.GetSessionStore() == config.SessionStoreDatabase {
		spec := config.GetSessionSweepSpec()
		if _, err := s.cron.AddJob(spec, job.NewCleanSessionsJob(s.store)); err != nil {
			logger.Warningf("add clean sessions job [%s] error: %v", spec, err)
		}
	}
	if _, err := s.cron.AddJob("@hourly", job.NewCheckpointJob()); err != nil {
		logger.Warning("add checkpoint job error:", err)
	}
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.cron = cron.New()
	s.cron.Start()

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	certFile, keyFile := config.GetCertFile(), config.GetKeyFile()
	if certFile != "" || keyFile != "" {
		if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
			cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
			listener = network.NewRedirectListener(listener, config.GetDomain())
			listener = tls.NewListener(listener, cfg)
			logger.Info("Web server running HTTPS on", listener.Addr())
		} else {
			logger.Error("Error loading certificates:", err)
			logger.Info("Web server running HTTP on", listener.Addr())
		}
	} else {
		logger.Info("Web server running HTTP on", listener.Addr())
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("serve:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop shuts down the web server and the cron jobs. The Redis client stays open for the
// next server; cache.Close releases it at exit.
func (s *Server) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	} else if s.listener != nil {
		err = s.listener.Close()
	}
	s.cancel()
	return err
}
