package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"study_quiz_backend/internal/model"
	"study_quiz_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCompleter struct {
	output     string
	err        error
	lastPrompt string
}

func (c *staticCompleter) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	c.lastPrompt = prompt
	return c.output, c.err
}

func newTestQuizService(t *testing.T, ai TextCompleter) *QuizService {
	t.Helper()
	return NewQuizService(newTestRepository(t), ai, newTestDocumentService(t), false)
}

func writeSourceFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const twoQuestionOutput = `Here are your quiz questions:

1. What is the capital of France?
A) London
B) Paris
C) Berlin
D) Madrid
Correct Answer: B) Paris
Explanation: Paris has been the capital of France since 987.

2. Which planet is closest to the sun?
A) Venus
B) Earth
C) Mercury
D) Mars
Correct Answer: C) Mercury
Explanation: Mercury orbits at about 58 million km from the sun.`

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(5, "some study material")

	assert.Contains(t, prompt, "generate 5 multiple-choice quiz questions")
	assert.Contains(t, prompt, "Correct Answer: Option A")
	assert.True(t, strings.HasSuffix(prompt, "Text: some study material\n\nQuestions:"))
}

func TestGenerateQuizPersistsParsedQuestions(t *testing.T) {
	ai := &staticCompleter{output: twoQuestionOutput}
	svc := newTestQuizService(t, ai)

	path := writeSourceFile(t, "notes.txt", "France and planets")
	quiz, err := svc.GenerateQuiz(context.Background(), 2, 300, []string{path})
	require.NoError(t, err)

	assert.Contains(t, ai.lastPrompt, "France and planets")

	stored, err := svc.Repo.FindQuizByID(quiz.ID)
	require.NoError(t, err)
	require.Len(t, stored.Questions, 2)

	first := stored.Questions[0]
	assert.Equal(t, "What is the capital of France?", first.QuestionText)
	assert.Equal(t, []string{"A) London", "B) Paris", "C) Berlin", "D) Madrid"}, first.Options())
	assert.Equal(t, "B) Paris", first.CorrectAnswer)
	assert.Contains(t, first.Explanation, "capital of France")

	assert.Equal(t, "Which planet is closest to the sun?", stored.Questions[1].QuestionText)
	assert.Equal(t, 300, stored.TimeLimit)
}

func TestGenerateQuizJoinsMultipleDocuments(t *testing.T) {
	ai := &staticCompleter{output: twoQuestionOutput}
	svc := newTestQuizService(t, ai)

	p1 := writeSourceFile(t, "a.txt", "first document")
	p2 := writeSourceFile(t, "b.md", "second document")
	_, err := svc.GenerateQuiz(context.Background(), 2, 60, []string{p1, p2})
	require.NoError(t, err)

	assert.Contains(t, ai.lastPrompt, "first document\n\nsecond document\n\n")
}

func TestGenerateQuizNoUsableQuestionsStillCreatesQuiz(t *testing.T) {
	ai := &staticCompleter{output: "Sorry, I cannot help with that."}
	svc := newTestQuizService(t, ai)

	path := writeSourceFile(t, "notes.txt", "content")
	quiz, err := svc.GenerateQuiz(context.Background(), 3, 60, []string{path})
	require.NoError(t, err)

	// 全部候选块不合格时生成仍然成功，只是题目列表为空
	stored, err := svc.Repo.FindQuizByID(quiz.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Questions)
	assert.Equal(t, 3, stored.NumQuestions)
	assert.Equal(t, 60, stored.TimeLimit)
}

func TestGenerateQuizPropagatesAIError(t *testing.T) {
	ai := &staticCompleter{err: errors.New("upstream unavailable")}
	svc := newTestQuizService(t, ai)

	path := writeSourceFile(t, "notes.txt", "content")
	_, err := svc.GenerateQuiz(context.Background(), 3, 60, []string{path})
	assert.ErrorContains(t, err, "upstream unavailable")
}

func TestParseDiscardsIncompleteQuestions(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})

	raw := `1. Only three options here
A) One
B) Two
C) Three
Correct Answer: A) One

2. Complete question
A) One
B) Two
C) Three
D) Four
Correct Answer: D) Four`

	parsed := svc.parseGeneratedQuestions(raw)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Complete question", parsed[0].Text)
}

func TestParseMissingCorrectAnswerDiscarded(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})

	raw := `1. No answer marked
A) One
B) Two
C) Three
D) Four`

	assert.Empty(t, svc.parseGeneratedQuestions(raw))
}

func TestParseDuplicateCorrectAnswerLastWins(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})

	raw := `1. Pick one
A) One
B) Two
C) Three
D) Four
Correct Answer: A) One
Correct Answer: C) Three`

	parsed := svc.parseGeneratedQuestions(raw)
	require.Len(t, parsed, 1)
	assert.Equal(t, "C) Three", parsed[0].CorrectAnswer)
}

func TestParseIgnoresSurroundingProse(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})

	raw := `Sure! Here are the questions you asked for.

1. A question
A) One
B) Two
C) Three
D) Four
Correct Answer: B) Two

I hope these are helpful. Let me know if you need more.`

	parsed := svc.parseGeneratedQuestions(raw)
	require.Len(t, parsed, 1)
	assert.Equal(t, "A question", parsed[0].Text)
	assert.Len(t, parsed[0].Options, 4)
}

func TestParseRequireExplanationsMode(t *testing.T) {
	svc := NewQuizService(newTestRepository(t), &staticCompleter{}, newTestDocumentService(t), true)

	raw := `1. With explanation
A) One
B) Two
C) Three
D) Four
Correct Answer: A) One
Explanation: Because it is first.

2. Without explanation
A) One
B) Two
C) Three
D) Four
Correct Answer: B) Two`

	parsed := svc.parseGeneratedQuestions(raw)
	require.Len(t, parsed, 1)
	assert.Equal(t, "With explanation", parsed[0].Text)
}

func seedQuiz(t *testing.T, svc *QuizService, questions []model.Question) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{NumQuestions: len(questions), TimeLimit: 120}
	require.NoError(t, svc.Repo.CreateQuiz(quiz))
	require.NoError(t, svc.Repo.AddQuestions(quiz.ID, questions))
	loaded, err := svc.Repo.FindQuizByID(quiz.ID)
	require.NoError(t, err)
	return loaded
}

func fourQuestionFixture() []model.Question {
	qs := make([]model.Question, 4)
	for i := range qs {
		qs[i] = model.Question{
			QuestionText:  "Question " + strconv.Itoa(i+1),
			OptionA:       "A) Alpha",
			OptionB:       "B) Beta",
			OptionC:       "C) Gamma",
			OptionD:       "D) Delta",
			CorrectAnswer: "A) Alpha",
			Explanation:   "Alpha is correct for question " + strconv.Itoa(i+1),
		}
	}
	return qs
}

func TestSubmitQuizScoresByExactMatch(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, fourQuestionFixture())

	answers := map[string]string{}
	for i, q := range quiz.Questions {
		if i < 3 {
			answers[strconv.FormatUint(uint64(q.ID), 10)] = "A) Alpha"
		} else {
			answers[strconv.FormatUint(uint64(q.ID), 10)] = "B) Beta"
		}
	}

	result, err := svc.SubmitQuiz(SubmitQuizRequest{QuizID: quiz.ID, UserAnswers: answers})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 4, result.TotalQuestions)
	assert.Equal(t, 75.0, result.PercentageScore)
	require.Len(t, result.ResultsBreakdown, 4)
	assert.True(t, result.ResultsBreakdown[0].IsCorrect)
	assert.False(t, result.ResultsBreakdown[3].IsCorrect)
	// 提交接口不带解析
	assert.Empty(t, result.ResultsBreakdown[0].Explanation)
}

func TestSubmitQuizAbsentAnswersRecordedAsNone(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, fourQuestionFixture())

	result, err := svc.SubmitQuiz(SubmitQuizRequest{QuizID: quiz.ID, UserAnswers: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	for _, qr := range result.ResultsBreakdown {
		assert.Equal(t, "none", qr.UserAnswer)
		assert.False(t, qr.IsCorrect)
	}
}

func TestSubmitQuizNotFound(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})

	_, err := svc.SubmitQuiz(SubmitQuizRequest{QuizID: 999, UserAnswers: nil})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestPercentageRounding(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, fourQuestionFixture()[:3])

	answers := map[string]string{
		strconv.FormatUint(uint64(quiz.Questions[0].ID), 10): "A) Alpha",
	}
	result, err := svc.SubmitQuiz(SubmitQuizRequest{QuizID: quiz.ID, UserAnswers: answers})
	require.NoError(t, err)

	assert.Equal(t, 33.33, result.PercentageScore)
}

func TestSubmitEmptyQuizScoresZero(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, nil)

	result, err := svc.SubmitQuiz(SubmitQuizRequest{QuizID: quiz.ID, UserAnswers: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0, result.TotalQuestions)
	assert.Equal(t, 0.0, result.PercentageScore)
	assert.Empty(t, result.ResultsBreakdown)
}

func TestGetQuizResultsIncludesExplanations(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, fourQuestionFixture())

	answers := map[string]string{
		strconv.FormatUint(uint64(quiz.Questions[0].ID), 10): "A) Alpha",
	}
	_, err := svc.SubmitQuiz(SubmitQuizRequest{QuizID: quiz.ID, UserAnswers: answers})
	require.NoError(t, err)

	result, err := svc.GetQuizResults(quiz.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Score)
	assert.Equal(t, "A) Alpha", result.ResultsBreakdown[0].UserAnswer)
	assert.NotEmpty(t, result.ResultsBreakdown[0].Explanation)
	assert.Equal(t, "none", result.ResultsBreakdown[1].UserAnswer)
}

func TestGetQuizResultsWithoutSubmission(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, fourQuestionFixture())

	result, err := svc.GetQuizResults(quiz.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 4, result.TotalQuestions)
	for _, qr := range result.ResultsBreakdown {
		assert.Equal(t, "none", qr.UserAnswer)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})

	_, err := svc.GetQuiz(12345)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestGetQuizResponseShape(t *testing.T) {
	svc := newTestQuizService(t, &staticCompleter{})
	quiz := seedQuiz(t, svc, fourQuestionFixture()[:2])

	resp, err := svc.GetQuiz(quiz.ID)
	require.NoError(t, err)

	assert.Equal(t, quiz.ID, resp.ID)
	assert.Equal(t, 120, resp.TimeLimit)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, []string{"A) Alpha", "B) Beta", "C) Gamma", "D) Delta"}, resp.Questions[0].Options)
}
