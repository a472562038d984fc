package app

import (
	"study_quiz_backend/docs"
	"study_quiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 生成与提交走根路径，与前端表单提交地址保持一致
	router.POST("/generate_quiz", c.quiz.GenerateQuiz)
	router.POST("/submit_quiz", c.quiz.SubmitQuiz)

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
		api.GET("/quiz/:quizId", c.quiz.GetQuizData)
		api.GET("/quiz-results/:quizId", c.quiz.GetQuizResults)
	}
}
