package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/turnon/taskdb/store"
	"github.com/turnon/taskdb/task"
)

const mod = "api"

const (
	msgTaskNotFound     = "Task not found!"
	msgInvalidBody      = "Invalid body!"
	msgInternalError    = "Internal server error!"
	msgEndpointNotFound = "Endpoint not found!"
)

type taskApi struct {
	addr  string
	ch    chan struct{}
	ctx   context.Context
	tasks *store.Collection
}

// taskBody is what callers may supply on create and update: name and
// state, both required. Ids are never taken from the caller.
type taskBody struct {
	Name  string `json:"name" binding:"required"`
	State string `json:"state" binding:"required"`
}

func newApi(ctx context.Context, addr string, tasks *store.Collection) *taskApi {
	api := &taskApi{ctx: ctx, addr: addr, tasks: tasks}
	api.start()
	return api
}

// wait blocks until the api has shut down
func (api *taskApi) wait() chan struct{} {
	return api.ch
}

// logErr logs a server-side failure with full detail
func (api *taskApi) logErr(err error) {
	log.Error().Str("mod", mod).Err(err).Send()
}

func (api *taskApi) start() {
	api.ch = make(chan struct{})

	gin.SetMode(gin.ReleaseMode)

	httpSrv := &http.Server{
		Addr:    api.addr,
		Handler: api.router(),
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			api.logErr(err)
		}
	}()

	go func() {
		<-api.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(ctx)
		if err == nil {
			log.Info().Str("mod", mod).Msg("shutdown")
		} else {
			api.logErr(err)
		}
		close(api.ch)
	}()
}

// router declares the full route table. Anything outside it, wrong
// method included, gets the fixed endpoint-not-found body.
func (api *taskApi) router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Str("mod", mod).Interface("panic", recovered).Msg("recovered")
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgInternalError})
	}))

	router.HandleMethodNotAllowed = true
	router.NoRoute(notFoundEndpoint)
	router.NoMethod(notFoundEndpoint)

	router.GET("/task/:id", api.getTask)
	router.GET("/tasks", api.listTasks)
	router.POST("/task", api.postTask)
	router.PUT("/task/:id", api.putTask)
	router.DELETE("/task/:id", api.deleteTask)

	return router
}

// getTask returns one task by id
func (api *taskApi) getTask(c *gin.Context) {
	t, err := api.tasks.FindByID(c.Param("id"))
	if err != nil {
		notFoundTask(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

// listTasks returns every task, [] when there are none
func (api *taskApi) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, api.tasks.FindAll())
}

// postTask creates a task from the request body
func (api *taskApi) postTask(c *gin.Context) {
	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidBody(c)
		return
	}

	t := task.New(body.Name, body.State)
	if err := api.tasks.Create(t); err != nil {
		api.logErr(err)
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

// putTask replaces name and state, keeping the stored id. Existence
// is checked before the body is validated.
func (api *taskApi) putTask(c *gin.Context) {
	existing, err := api.tasks.FindByID(c.Param("id"))
	if err != nil {
		notFoundTask(c)
		return
	}

	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidBody(c)
		return
	}

	updated, err := api.tasks.Update(task.Task{ID: existing.ID, Name: body.Name, State: body.State})
	if errors.Is(err, store.ErrNotFound) {
		notFoundTask(c)
		return
	}
	if err != nil {
		api.logErr(err)
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteTask removes a task by id, responding with an empty body
func (api *taskApi) deleteTask(c *gin.Context) {
	id := c.Param("id")
	if _, err := api.tasks.FindByID(id); err != nil {
		notFoundTask(c)
		return
	}

	// a record gone between the two calls still counts as deleted
	if err := api.tasks.Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		api.logErr(err)
		internalError(c)
		return
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
}

func notFoundTask(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": msgTaskNotFound})
}

func notFoundEndpoint(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": msgEndpointNotFound})
}

func invalidBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidBody})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"message": msgInternalError})
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		startTime := time.Now()
		ctx.Next()
		log.
			Info().
			Str("mod", mod).
			Int("code", ctx.Writer.Status()).
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.RequestURI).
			TimeDiff("latency", time.Now(), startTime).
			Send()
	}
}
