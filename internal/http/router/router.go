package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toacrd.app/oracle/internal/http/handler"
)

type RouterConfig struct {
	MetricsEnabled bool
}

func SetupRoutes(router *gin.Engine, questions handler.QuestionService, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		askHandler := handler.NewAskHandler(questions)
		AskRouter(v1, askHandler)
	}
}

func AskRouter(router *gin.RouterGroup, handler *handler.AskHandler) {
	router.POST("/ask", handler.Ask)
	router.GET("/users/:id/history", handler.History)
}
