package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/observability"
	"tick-replay-lab/internal/session"
	"tick-replay-lab/internal/storage"
)

// Deps are the collaborators served by the router. Datasets and Runs may be nil.
type Deps struct {
	Session  *session.Session
	Hub      *Hub
	Datasets storage.DatasetStore
	Runs     storage.RunStore
	Logger   *zap.Logger
}

type handlers struct {
	Deps
}

// NewRouter builds the HTTP surface: health, metrics, session state and commands,
// the dataset catalog and the websocket event stream.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Hub == nil {
		d.Hub = NewHub(d.Logger)
	}
	h := &handlers{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")
	api.GET("/state", h.state)
	api.GET("/stats", h.stats)
	api.POST("/commands", h.command)
	api.GET("/datasets", h.listDatasets)
	api.GET("/datasets/:id", h.getDataset)
	api.GET("/datasets/:id/runs", h.listRuns)

	r.GET("/ws", h.websocket)
	return r
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session_id": h.Session.ID()})
}

func (h *handlers) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

func (h *handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Stats())
}

func (h *handlers) command(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd, err := DecodeCommand(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Session.Execute(cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"cmd": cmd.Name, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cmd": cmd.Name, "state": h.Session.State()})
}

func (h *handlers) listDatasets(c *gin.Context) {
	if h.Datasets == nil {
		c.JSON(http.StatusOK, []*domain.Dataset{})
		return
	}
	list, err := h.Datasets.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list datasets", err)
		return
	}
	if list == nil {
		list = []*domain.Dataset{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) getDataset(c *gin.Context) {
	if h.Datasets == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": storage.ErrNotFound.Error()})
		return
	}
	d, err := h.Datasets.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "get dataset", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) listRuns(c *gin.Context) {
	if h.Runs == nil {
		c.JSON(http.StatusOK, []*domain.RunSummary{})
		return
	}
	runs, err := h.Runs.GetByDataset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "list runs", err)
		return
	}
	if runs == nil {
		runs = []*domain.RunSummary{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h *handlers) websocket(c *gin.Context) {
	h.Hub.Serve(c.Writer, c.Request, h.Session)
}

func (h *handlers) internalError(c *gin.Context, op string, err error) {
	h.Logger.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		took := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observability.RecordHTTPRequest(route, strconv.Itoa(status), took)
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", took),
		)
	}
}
