package repository

import (
	"study_quiz_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) CreateQuiz(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) AddQuestions(quizID uint, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	for i := range questions {
		questions[i].QuizID = quizID
	}
	return r.DB.Create(&questions).Error
}

// FindQuizByID 加载测验及其题目，题目按插入顺序返回
func (r *QuizRepository) FindQuizByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.id ASC")
	}).First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) DeleteQuiz(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizSubmission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, id).Error
	})
}

// SaveSubmission 每个测验只保留最新一次提交
func (r *QuizRepository) SaveSubmission(submission *model.QuizSubmission) error {
	var existing model.QuizSubmission
	err := r.DB.First(&existing, "quiz_id = ?", submission.QuizID).Error
	if err == nil {
		existing.Answers = submission.Answers
		existing.Score = submission.Score
		existing.TotalQuestions = submission.TotalQuestions
		existing.PercentageScore = submission.PercentageScore
		if saveErr := r.DB.Save(&existing).Error; saveErr != nil {
			return saveErr
		}
		*submission = existing
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.DB.Create(submission).Error
}

func (r *QuizRepository) FindSubmissionByQuiz(quizID uint) (*model.QuizSubmission, error) {
	var submission model.QuizSubmission
	err := r.DB.First(&submission, "quiz_id = ?", quizID).Error
	return &submission, err
}
