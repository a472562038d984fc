package model

import "encoding/json"

// swagger:model Quiz
type Quiz struct {
	BaseModel
	NumQuestions int        `gorm:"not null" json:"numQuestions"`
	TimeLimit    int        `gorm:"not null" json:"timeLimit"` // 秒
	Questions    []Question `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Question 持久化的单选题。四个选项均保留模型输出时的 "A) ..." 前缀，
// correct_answer 与其中一个选项逐字符一致，判分时做精确比较。
type Question struct {
	BaseModel
	QuizID        uint   `gorm:"index;not null" json:"quizId"`
	QuestionText  string `gorm:"type:text;not null" json:"questionText"`
	OptionA       string `gorm:"size:200;not null" json:"optionA"`
	OptionB       string `gorm:"size:200;not null" json:"optionB"`
	OptionC       string `gorm:"size:200;not null" json:"optionC"`
	OptionD       string `gorm:"size:200;not null" json:"optionD"`
	CorrectAnswer string `gorm:"size:200;not null" json:"correctAnswer"`
	Explanation   string `gorm:"type:text" json:"explanation"`
}

func (Question) TableName() string {
	return "questions"
}

// Options 按 A-D 顺序返回四个选项
func (q *Question) Options() []string {
	return []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// QuizSubmission 记录一次答题提交。同一测验重复提交时覆盖旧记录，
// 结果页据此重新判分。
type QuizSubmission struct {
	UUIDBase
	QuizID          uint            `gorm:"index;not null" json:"quizId"`
	Answers         json.RawMessage `gorm:"type:json" json:"answers"` // questionId -> 用户答案原文
	Score           int             `gorm:"default:0" json:"score"`
	TotalQuestions  int             `gorm:"default:0" json:"totalQuestions"`
	PercentageScore float64         `gorm:"default:0" json:"percentageScore"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}
