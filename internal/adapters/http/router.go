package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	nethttp "net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/adapters/signal"
	"github.com/dkeye/zoomify/internal/app/orch"
	"github.com/dkeye/zoomify/internal/app/view"
	"github.com/dkeye/zoomify/internal/config"
	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const clientTokenKey = "client_token"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a per-browser token in the cookie session.
// The token keys the client's session view.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// IsolationMiddleware makes pages cross-origin isolated.
func IsolationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Embedder-Policy", "require-corp")
		c.Next()
	}
}

func sidOf(c *gin.Context) core.SessionID {
	return core.SessionID(c.GetString(clientTokenKey))
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	if cfg.Isolation.Enabled {
		r.Use(IsolationMiddleware())
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ZoomifySessions", store))
	r.Use(ClientTokenMiddleware())

	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.tmpl")))
	r.Static("/static", cfg.StaticPath)

	r.GET("/", func(c *gin.Context) {
		v, mounted := o.View(sidOf(c))
		c.HTML(nethttp.StatusOK, "home.tmpl", gin.H{
			"Mounted": mounted,
			"View":    v,
			"Query":   c.Request.URL.RawQuery,
		})
	})
	r.GET("/video", func(c *gin.Context) {
		v, ok := o.View(sidOf(c))
		if !ok {
			c.Redirect(nethttp.StatusFound, "/")
			return
		}
		variant := view.Select(v.Capability)
		c.HTML(nethttp.StatusOK, variant.Template(), gin.H{
			"Variant": string(variant),
			"View":    v,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	ws := signal.NewSessionWSController(o, cfg.Isolation.Enabled, cfg.ReadLimit, cfg.PingPeriod)
	api.GET("/ws/session", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", string(sidOf(c))).Msg("ws session endpoint hit")
		ws.HandleSession(ctx, c)
	})

	api.GET("/session", func(c *gin.Context) {
		v, ok := o.View(sidOf(c))
		if !ok {
			c.JSON(nethttp.StatusNotFound, gin.H{"error": orch.ErrNotMounted.Error()})
			return
		}
		c.JSON(nethttp.StatusOK, v)
	})

	api.POST("/session/toggle", func(c *gin.Context) {
		sid := sidOf(c)
		if err := o.Toggle(c.Request.Context(), sid); err != nil {
			status := nethttp.StatusBadGateway
			if errors.Is(err, orch.ErrNotMounted) {
				status = nethttp.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		v, _ := o.View(sid)
		c.JSON(nethttp.StatusOK, v)
	})

	api.POST("/voice", func(c *gin.Context) {
		var req struct {
			Phrase string `json:"phrase"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(nethttp.StatusBadRequest, gin.H{"error": "invalid phrase"})
			return
		}
		action, matched, err := o.Phrase(c.Request.Context(), sidOf(c), req.Phrase)
		if err != nil {
			c.JSON(nethttp.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(nethttp.StatusAccepted, gin.H{"matched": matched, "action": action})
	})

	if cfg.Mode == "debug" {
		setupDebug(api.Group("/debug"), o)
	}

	return r
}

// simulator is implemented by vendor clients that can fake connection events.
type simulator interface {
	Simulate(ev domain.ConnectionChange)
}

func setupDebug(g *gin.RouterGroup, o *orch.Orchestrator) {
	g.GET("/handles", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"handles": o.Registry.HandlesSnapshot()})
	})

	g.POST("/simulate", func(c *gin.Context) {
		var ev domain.ConnectionChange
		if err := c.ShouldBindJSON(&ev); err != nil || ev.State == "" {
			c.JSON(nethttp.StatusBadRequest, gin.H{"error": "invalid event"})
			return
		}
		h, ok := o.Registry.Handles(sidOf(c))
		if !ok {
			c.JSON(nethttp.StatusNotFound, gin.H{"error": "no connected session"})
			return
		}
		sim, ok := h.Client.(simulator)
		if !ok {
			c.JSON(nethttp.StatusNotImplemented, gin.H{"error": "vendor client cannot simulate events"})
			return
		}
		sim.Simulate(ev)
		v, _ := o.View(sidOf(c))
		c.JSON(nethttp.StatusOK, v)
	})
}
