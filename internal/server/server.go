package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/beacon/internal/config"
	"github.com/smallbiznis/beacon/internal/evaluation"
	evaluationdomain "github.com/smallbiznis/beacon/internal/evaluation/domain"
	"github.com/smallbiznis/beacon/internal/flag"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
	"github.com/smallbiznis/beacon/internal/group"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
	"github.com/smallbiznis/beacon/internal/observability"
	obsmiddleware "github.com/smallbiznis/beacon/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/beacon/internal/observability/metrics"
	obstracing "github.com/smallbiznis/beacon/internal/observability/tracing"
	"github.com/smallbiznis/beacon/internal/rule"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	flag.Module,
	rule.Module,
	group.Module,
	evaluation.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	flagSvc  flagdomain.Service
	ruleSvc  ruledomain.Service
	groupSvc groupdomain.Service
	evalSvc  evaluationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	FlagSvc  flagdomain.Service
	RuleSvc  ruledomain.Service
	GroupSvc groupdomain.Service
	EvalSvc  evaluationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		flagSvc:  p.FlagSvc,
		ruleSvc:  p.RuleSvc,
		groupSvc: p.GroupSvc,
		evalSvc:  p.EvalSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/flags", s.ListFlags)
	api.POST("/flags", s.CreateFlag)
	api.GET("/flags/:flag_id", s.GetFlag)
	api.PATCH("/flags/:flag_id", s.UpdateFlag)
	api.DELETE("/flags/:flag_id", s.DeleteFlag)

	api.GET("/flags/:flag_id/rules", s.ListRules)
	api.POST("/flags/:flag_id/rules", s.CreateRule)
	api.PATCH("/flags/:flag_id/rules/:rule_id", s.UpdateRule)
	api.DELETE("/flags/:flag_id/rules/:rule_id", s.DeleteRule)

	api.GET("/groups", s.ListGroups)
	api.POST("/groups", s.CreateGroup)
	api.PATCH("/groups/:group_id", s.UpdateGroup)
	api.DELETE("/groups/:group_id", s.DeleteGroup)

	api.GET("/evaluate/:flag_name", s.EvaluateFlag)
	api.POST("/evaluate/:flag_name", s.EvaluateFlag)
}
