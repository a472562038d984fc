package repository

import (
	"encoding/json"
	"study_quiz_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *QuizRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Quiz{}, &model.Question{}, &model.QuizSubmission{}))
	return NewQuizRepository(db)
}

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			QuestionText:  "Question",
			OptionA:       "A) One",
			OptionB:       "B) Two",
			OptionC:       "C) Three",
			OptionD:       "D) Four",
			CorrectAnswer: "A) One",
		}
	}
	return qs
}

func TestCreateAndFindQuiz(t *testing.T) {
	repo := newTestRepo(t)

	quiz := &model.Quiz{NumQuestions: 3, TimeLimit: 600}
	require.NoError(t, repo.CreateQuiz(quiz))
	require.NotZero(t, quiz.ID)
	require.NoError(t, repo.AddQuestions(quiz.ID, sampleQuestions(3)))

	loaded, err := repo.FindQuizByID(quiz.ID)
	require.NoError(t, err)

	assert.Equal(t, 600, loaded.TimeLimit)
	require.Len(t, loaded.Questions, 3)
	for i := 1; i < len(loaded.Questions); i++ {
		assert.Greater(t, loaded.Questions[i].ID, loaded.Questions[i-1].ID)
	}
}

func TestFindQuizNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindQuizByID(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAddQuestionsEmptySliceIsNoop(t *testing.T) {
	repo := newTestRepo(t)

	quiz := &model.Quiz{NumQuestions: 0, TimeLimit: 60}
	require.NoError(t, repo.CreateQuiz(quiz))
	assert.NoError(t, repo.AddQuestions(quiz.ID, nil))
}

func TestSaveSubmissionOverwritesPrevious(t *testing.T) {
	repo := newTestRepo(t)

	quiz := &model.Quiz{NumQuestions: 2, TimeLimit: 60}
	require.NoError(t, repo.CreateQuiz(quiz))

	first, _ := json.Marshal(map[string]string{"1": "A) One"})
	require.NoError(t, repo.SaveSubmission(&model.QuizSubmission{
		QuizID:          quiz.ID,
		Answers:         first,
		Score:           1,
		TotalQuestions:  2,
		PercentageScore: 50,
	}))

	second, _ := json.Marshal(map[string]string{"1": "A) One", "2": "B) Two"})
	require.NoError(t, repo.SaveSubmission(&model.QuizSubmission{
		QuizID:          quiz.ID,
		Answers:         second,
		Score:           2,
		TotalQuestions:  2,
		PercentageScore: 100,
	}))

	loaded, err := repo.FindSubmissionByQuiz(quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Score)
	assert.Equal(t, 100.0, loaded.PercentageScore)

	var count int64
	repo.DB.Model(&model.QuizSubmission{}).Where("quiz_id = ?", quiz.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeleteQuizRemovesChildren(t *testing.T) {
	repo := newTestRepo(t)

	quiz := &model.Quiz{NumQuestions: 2, TimeLimit: 60}
	require.NoError(t, repo.CreateQuiz(quiz))
	require.NoError(t, repo.AddQuestions(quiz.ID, sampleQuestions(2)))

	answers, _ := json.Marshal(map[string]string{})
	require.NoError(t, repo.SaveSubmission(&model.QuizSubmission{QuizID: quiz.ID, Answers: answers}))

	require.NoError(t, repo.DeleteQuiz(quiz.ID))

	_, err := repo.FindQuizByID(quiz.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	repo.DB.Unscoped().Model(&model.Question{}).Where("quiz_id = ? AND deleted_at IS NULL", quiz.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
