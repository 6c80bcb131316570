package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suPer8Hu/fin-advisor/internal/common"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi/handlers"
	"github.com/suPer8Hu/fin-advisor/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(h.Log))
	r.Use(middleware.Recovery(h.Log))
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(jwtSecret))

	// Chat sessions
	authGroup.POST("/chat/sessions", h.CreateChatSession)
	authGroup.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)
	authGroup.PUT("/chat/sessions/:session_id/summaries/:name", h.PutDataSummary)
	authGroup.GET("/chat/sessions/:session_id/actions", h.GetActionBoard)
	authGroup.POST("/chat/sessions/:session_id/actions/:key", h.UpdateAction)

	// Advice
	authGroup.POST("/advice", h.Advise)
	authGroup.POST("/advice/insights", h.QuickInsights)
	authGroup.POST("/advice/async", h.AdviseAsync)
	authGroup.GET("/advice/jobs/:job_id", h.GetAdviceJob)

	// Financial memory
	authGroup.POST("/finance/transactions", h.ImportTransactions)
	authGroup.POST("/finance/goals", h.CreateGoal)
	authGroup.GET("/finance/aggregates", h.GetAggregates)
	return r
}
