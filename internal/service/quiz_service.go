package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"study_quiz_backend/internal/model"
	"study_quiz_backend/internal/repository"
	"study_quiz_backend/internal/util"
	"study_quiz_backend/pkg/logger"
	"study_quiz_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// quizPromptTemplate 出题提示词。要求模型输出编号题干、A)-D) 选项和
// Correct Answer 行，解析器按此格式逐行扫描。模型附带的 Explanation 行
// 也会被解析，但模板不强制要求。
const quizPromptTemplate = `Given the following text, generate %d multiple-choice quiz questions. Each question must have exactly 4 options (A, B, C, D) and a single correct answer. Format the output strictly as follows:

1. Question text?
A) Option A
B) Option B
C) Option C
D) Option D
Correct Answer: Option A

2. Second question text?
A) Option A
B) Option B
C) Option C
D) Option D
Correct Answer: Option B

... and so on.

Text: %s

Questions:`

var (
	questionStartPattern = regexp.MustCompile(`^(\d+)\.\s*(.*)$`)
	optionPattern        = regexp.MustCompile(`^[A-D]\)\s*`)
)

const (
	correctAnswerMarker = "Correct Answer:"
	explanationMarker   = "Explanation:"
)

type QuizService struct {
	Repo                *repository.QuizRepository
	AI                  TextCompleter
	Docs                *DocumentService
	RequireExplanations bool
}

func NewQuizService(repo *repository.QuizRepository, ai TextCompleter, docs *DocumentService, requireExplanations bool) *QuizService {
	return &QuizService{
		Repo:                repo,
		AI:                  ai,
		Docs:                docs,
		RequireExplanations: requireExplanations,
	}
}

// BuildPrompt 组装出题提示词
func BuildPrompt(numQuestions int, sourceText string) string {
	return fmt.Sprintf(quizPromptTemplate, numQuestions, sourceText)
}

// GenerateQuiz 读取已落盘的资料文件，调用模型出题并持久化整套测验
func (s *QuizService) GenerateQuiz(ctx context.Context, numQuestions, timeLimit int, paths []string) (*model.Quiz, error) {
	var combined strings.Builder
	for _, p := range paths {
		content, err := s.Docs.ReadContent(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", p, err)
		}
		combined.WriteString(content)
		combined.WriteString("\n\n")
	}

	prompt := BuildPrompt(numQuestions, combined.String())

	raw, err := s.AI.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed := s.parseGeneratedQuestions(raw)
	if len(parsed) == 0 {
		// 全部候选块被丢弃也不是错误，照常落库一套空测验
		logger.Log.Warn("Model output contained no usable questions",
			zap.Int("requested", numQuestions),
			zap.Int("outputLength", len(raw)))
	}

	quiz := &model.Quiz{
		NumQuestions: numQuestions,
		TimeLimit:    timeLimit,
	}
	if err := s.Repo.CreateQuiz(quiz); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(parsed))
	for _, pq := range parsed {
		questions = append(questions, model.Question{
			QuestionText:  pq.Text,
			OptionA:       pq.Options[0],
			OptionB:       pq.Options[1],
			OptionC:       pq.Options[2],
			OptionD:       pq.Options[3],
			CorrectAnswer: pq.CorrectAnswer,
			Explanation:   pq.Explanation,
		})
	}
	if err := s.Repo.AddQuestions(quiz.ID, questions); err != nil {
		return nil, err
	}
	quiz.Questions = questions

	monitoring.QuizzesGenerated.Inc()
	logger.Log.Info("Quiz generated",
		zap.Uint("quizId", quiz.ID),
		zap.Int("requested", numQuestions),
		zap.Int("parsed", len(parsed)))

	return quiz, nil
}

// parsedQuestion 解析阶段的中间结构，全部字段校验通过后才入库
type parsedQuestion struct {
	Text          string
	Options       []string
	CorrectAnswer string
	Explanation   string
}

func (pq *parsedQuestion) valid(requireExplanation bool) bool {
	if strings.TrimSpace(pq.Text) == "" {
		return false
	}
	if len(pq.Options) != 4 {
		return false
	}
	if strings.TrimSpace(pq.CorrectAnswer) == "" {
		return false
	}
	if requireExplanation && strings.TrimSpace(pq.Explanation) == "" {
		return false
	}
	return true
}

// parseGeneratedQuestions 逐行扫描模型输出。编号行开启新题，
// A)-D) 行整行追加为选项，Correct Answer/Explanation 行覆盖式赋值，
// 其余行一律忽略。不合格的题丢弃并记日志，不报错。
func (s *QuizService) parseGeneratedQuestions(raw string) []parsedQuestion {
	var result []parsedQuestion
	var current *parsedQuestion

	flush := func() {
		if current == nil {
			return
		}
		if current.valid(s.RequireExplanations) {
			result = append(result, *current)
			monitoring.QuestionsParsed.WithLabelValues("kept").Inc()
		} else {
			monitoring.QuestionsParsed.WithLabelValues("discarded").Inc()
			logger.Log.Warn("Discarding malformed question from model output",
				zap.String("questionText", current.Text),
				zap.Int("optionCount", len(current.Options)))
		}
		current = nil
	}

	for _, rawLine := range strings.Split(raw, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if m := questionStartPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &parsedQuestion{Text: strings.TrimSpace(m[2])}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case optionPattern.MatchString(line):
			current.Options = append(current.Options, line)
		case strings.HasPrefix(line, correctAnswerMarker):
			current.CorrectAnswer = strings.TrimSpace(strings.TrimPrefix(line, correctAnswerMarker))
		case strings.HasPrefix(line, explanationMarker):
			current.Explanation = strings.TrimSpace(strings.TrimPrefix(line, explanationMarker))
		}
	}
	flush()

	return result
}

// QuestionResponse 测验数据接口的单题结构
type QuestionResponse struct {
	ID            uint     `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizResponse 测验数据接口的响应结构
type QuizResponse struct {
	ID           uint               `json:"id"`
	NumQuestions int                `json:"num_questions"`
	TimeLimit    int                `json:"time_limit"`
	Questions    []QuestionResponse `json:"questions"`
}

// GetQuiz 返回整套测验及其题目
func (s *QuizService) GetQuiz(quizID uint) (*QuizResponse, error) {
	quiz, err := s.Repo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	resp := &QuizResponse{
		ID:           quiz.ID,
		NumQuestions: quiz.NumQuestions,
		TimeLimit:    quiz.TimeLimit,
		Questions:    make([]QuestionResponse, 0, len(quiz.Questions)),
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		resp.Questions = append(resp.Questions, QuestionResponse{
			ID:            q.ID,
			QuestionText:  q.QuestionText,
			Options:       q.Options(),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}

	return resp, nil
}

// QuestionResult 单题判分明细
type QuestionResult struct {
	QuestionID    uint     `json:"question_id"`
	QuestionText  string   `json:"question_text"`
	UserAnswer    string   `json:"user_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Options       []string `json:"options"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizResultResponse 判分结果
type QuizResultResponse struct {
	QuizID           uint             `json:"quiz_id"`
	Score            int              `json:"score"`
	TotalQuestions   int              `json:"total_questions"`
	PercentageScore  float64          `json:"percentage_score"`
	ResultsBreakdown []QuestionResult `json:"results_breakdown"`
}

// gradeAgainst 按精确字符串比较判分。answers 的键是题目 ID 的十进制串，
// 未作答的题记为 "none"，永远不会判对。
func gradeAgainst(quiz *model.Quiz, answers map[string]string, withExplanations bool) *QuizResultResponse {
	result := &QuizResultResponse{
		QuizID:           quiz.ID,
		TotalQuestions:   len(quiz.Questions),
		ResultsBreakdown: make([]QuestionResult, 0, len(quiz.Questions)),
	}

	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		userAnswer, ok := answers[strconv.FormatUint(uint64(q.ID), 10)]
		if !ok || userAnswer == "" {
			userAnswer = "none"
		}

		correct := userAnswer == q.CorrectAnswer
		if correct {
			result.Score++
		}

		qr := QuestionResult{
			QuestionID:    q.ID,
			QuestionText:  q.QuestionText,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Options:       q.Options(),
		}
		if withExplanations {
			qr.Explanation = q.Explanation
		}
		result.ResultsBreakdown = append(result.ResultsBreakdown, qr)
	}

	if result.TotalQuestions > 0 {
		pct := float64(result.Score) / float64(result.TotalQuestions) * 100
		result.PercentageScore = math.Round(pct*100) / 100
	}

	return result
}

// SubmitQuizRequest 答题提交请求
type SubmitQuizRequest struct {
	QuizID      uint              `json:"quiz_id" binding:"required"`
	UserAnswers map[string]string `json:"user_answers"`
}

// SubmitQuiz 判分并保存提交记录，重复提交覆盖旧记录
func (s *QuizService) SubmitQuiz(req SubmitQuizRequest) (*QuizResultResponse, error) {
	quiz, err := s.Repo.FindQuizByID(req.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	result := gradeAgainst(quiz, req.UserAnswers, false)

	answersJSON, err := json.Marshal(req.UserAnswers)
	if err != nil {
		return nil, err
	}
	submission := &model.QuizSubmission{
		QuizID:          quiz.ID,
		Answers:         answersJSON,
		Score:           result.Score,
		TotalQuestions:  result.TotalQuestions,
		PercentageScore: result.PercentageScore,
	}
	if err := s.Repo.SaveSubmission(submission); err != nil {
		return nil, err
	}

	logger.Log.Info("Quiz submitted",
		zap.Uint("quizId", quiz.ID),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions))

	return result, nil
}

// GetQuizResults 重新判分并附带解析。没有提交记录时按全部未作答处理。
func (s *QuizService) GetQuizResults(quizID uint) (*QuizResultResponse, error) {
	quiz, err := s.Repo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	answers := map[string]string{}
	submission, err := s.Repo.FindSubmissionByQuiz(quizID)
	if err == nil && len(submission.Answers) > 0 {
		if jsonErr := json.Unmarshal(submission.Answers, &answers); jsonErr != nil {
			logger.Log.Warn("Stored answers are not valid JSON",
				zap.Uint("quizId", quizID),
				zap.Error(jsonErr))
			answers = map[string]string{}
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return gradeAgainst(quiz, answers, true), nil
}
