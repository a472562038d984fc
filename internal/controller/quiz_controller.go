package controller

import (
	"errors"
	"mime/multipart"
	"strconv"
	"study_quiz_backend/internal/service"
	"study_quiz_backend/internal/util"
	"study_quiz_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QuizController struct {
	Service *service.QuizService
	Docs    *service.DocumentService
}

func NewQuizController(svc *service.QuizService, docs *service.DocumentService) *QuizController {
	return &QuizController{Service: svc, Docs: docs}
}

// @Summary 生成测验
// @Description 上传学习资料并调用 AI 生成单选题测验
// @Tags 测验模块
// @Accept multipart/form-data
// @Produce json
// @Param numQuestions formData int true "题目数量"
// @Param timeLimit formData int true "时间限制（秒）"
// @Param sourceFile formData file true "学习资料（txt/md/doc/docx，可多个）"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /generate_quiz [post]
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	numQuestions, err := strconv.Atoi(ctx.PostForm("numQuestions"))
	if err != nil || numQuestions <= 0 {
		util.BadRequest(ctx, "numQuestions must be a positive integer")
		return
	}

	timeLimit, err := strconv.Atoi(ctx.PostForm("timeLimit"))
	if err != nil || timeLimit <= 0 {
		util.BadRequest(ctx, "timeLimit must be a positive integer")
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		util.BadRequest(ctx, "invalid multipart form")
		return
	}

	var files []*multipart.FileHeader
	for _, fh := range form.File["sourceFile"] {
		if fh.Filename == "" {
			continue
		}
		// 只要有一个文件类型不合法就整批拒绝
		if !util.AllowedSourceFile(fh.Filename) {
			util.BadRequest(ctx, "file type not allowed: "+fh.Filename)
			return
		}
		files = append(files, fh)
	}

	if len(files) == 0 {
		util.BadRequest(ctx, "at least one source file is required")
		return
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := c.Docs.SaveUpload(ctx, fh)
		if err != nil {
			logger.Log.Error("Failed to save uploaded file",
				zap.String("filename", fh.Filename),
				zap.Error(err))
			util.InternalServerError(ctx)
			return
		}
		paths = append(paths, path)
	}

	quiz, err := c.Service.GenerateQuiz(ctx.Request.Context(), numQuestions, timeLimit, paths)
	if err != nil {
		// 缺少 API Key 等生成失败一律按服务端错误处理
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"quiz_id":       quiz.ID,
		"num_questions": quiz.NumQuestions,
		"time_limit":    quiz.TimeLimit,
	})
}

// @Summary 获取测验数据
// @Description 返回测验及全部题目
// @Tags 测验模块
// @Produce json
// @Param quizId path int true "测验ID"
// @Success 200 {object} service.QuizResponse
// @Failure 404 {object} util.Response
// @Router /api/quiz/{quizId} [get]
func (c *QuizController) GetQuizData(ctx *gin.Context) {
	quizID, err := strconv.ParseUint(ctx.Param("quizId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	resp, err := c.Service.GetQuiz(uint(quizID))
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	ctx.JSON(200, resp)
}

// @Summary 提交答案
// @Description 按精确匹配判分并保存提交记录
// @Tags 测验模块
// @Accept json
// @Produce json
// @Param body body service.SubmitQuizRequest true "答题数据"
// @Success 200 {object} service.QuizResultResponse
// @Failure 404 {object} util.Response
// @Router /submit_quiz [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.SubmitQuiz(req)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	ctx.JSON(200, result)
}

// @Summary 获取测验结果
// @Description 返回最近一次提交的判分明细，附带每题解析
// @Tags 测验模块
// @Produce json
// @Param quizId path int true "测验ID"
// @Success 200 {object} service.QuizResultResponse
// @Failure 404 {object} util.Response
// @Router /api/quiz-results/{quizId} [get]
func (c *QuizController) GetQuizResults(ctx *gin.Context) {
	quizID, err := strconv.ParseUint(ctx.Param("quizId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	result, err := c.Service.GetQuizResults(uint(quizID))
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	ctx.JSON(200, result)
}
