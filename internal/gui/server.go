// A small gin HTTP surface over the scheduler.
// Network services are read from the store, passes are triggered with POST
// and the outcome (plan or decision plus the report) is sent back as JSON.
// Prometheus metrics are served from the same router.
package gui

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/amsen20/leovnf/internal/connector"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/scheduler"
	"github.com/amsen20/leovnf/internal/store"
	"github.com/amsen20/leovnf/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logging.Get()

type Server struct {
	scheduler *scheduler.Scheduler
	router    *gin.Engine
}

func New(sched *scheduler.Scheduler, gatherer prometheus.Gatherer) *Server {
	server := &Server{
		scheduler: sched,
		router:    gin.Default(),
	}
	server.router.Use(cors.Default())
	server.registerRoutes(gatherer)

	return server
}

func (server *Server) registerRoutes(gatherer prometheus.Gatherer) {
	router := server.router

	router.GET("/ns", func(ctx *gin.Context) {
		names, err := server.scheduler.ListNS(ctx.Request.Context())
		if err != nil {
			abort(ctx, err, nil)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"ns": names})
	})

	router.GET("/ns/:name", func(ctx *gin.Context) {
		ns, err := server.scheduler.GetNS(ctx.Request.Context(), ctx.Param("name"))
		if err != nil {
			abort(ctx, err, nil)
			return
		}
		ctx.JSON(http.StatusOK, ns)
	})

	router.PUT("/ns/:name", func(ctx *gin.Context) {
		draft := &model.NSDraft{}
		if err := ctx.ShouldBindJSON(draft); err != nil {
			abort(ctx, errors.Join(model.ErrConfig, err), nil)
			return
		}

		ns, err := server.scheduler.AddNS(ctx.Request.Context(), ctx.Param("name"), draft)
		if err != nil {
			abort(ctx, err, nil)
			return
		}
		ctx.JSON(http.StatusCreated, ns)
	})

	router.POST("/ns/:name/placement", func(ctx *gin.Context) {
		commit, err := commitParam(ctx)
		if err != nil {
			abort(ctx, err, nil)
			return
		}

		outcome, err := server.scheduler.Place(ctx.Request.Context(), ctx.Param("name"), commit)
		if err != nil {
			abort(ctx, err, outcome)
			return
		}
		ctx.JSON(http.StatusOK, outcome)
	})

	router.POST("/ns/:name/vnfs/:vnf/migration", func(ctx *gin.Context) {
		commit, err := commitParam(ctx)
		if err != nil {
			abort(ctx, err, nil)
			return
		}

		outcome, err := server.scheduler.Migrate(ctx.Request.Context(), ctx.Param("name"), ctx.Param("vnf"), commit)
		if err != nil {
			abort(ctx, err, outcome)
			return
		}
		ctx.JSON(http.StatusOK, outcome)
	})

	router.GET("/resources/:node", func(ctx *gin.Context) {
		snapshot, err := server.scheduler.Resource(ctx.Request.Context(), ctx.Param("node"))
		if err != nil {
			abort(ctx, err, nil)
			return
		}
		ctx.JSON(http.StatusOK, snapshot)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func commitParam(ctx *gin.Context) (bool, error) {
	commit, err := strconv.ParseBool(ctx.DefaultQuery("commit", "false"))
	if err != nil {
		return false, errors.Join(model.ErrConfig, err)
	}

	return commit, nil
}

// abort answers with the status matching err. The pass report, when there is
// one, goes along so the caller can see why every candidate was rejected.
func abort(ctx *gin.Context, err error, outcome *scheduler.Outcome) {
	body := gin.H{"error": err.Error()}
	if outcome != nil {
		body["pass_id"] = outcome.PassId
		body["report"] = outcome.Report
	}

	ctx.AbortWithStatusJSON(StatusOf(err), body)
}

func StatusOf(err error) int {
	switch scheduler.OutcomeLabel(err) {
	case "aborted":
		return http.StatusGatewayTimeout
	case "not_found":
		return http.StatusNotFound
	case "config_error":
		if errors.Is(err, store.ErrNoRecord) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}

	if errors.Is(err, connector.ErrUnknown) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

func (server *Server) Handler() http.Handler {
	return server.router
}

func (server *Server) Run(addr string) error {
	log.Info().Msgf("listening on %s", addr)

	return server.router.Run(addr)
}
