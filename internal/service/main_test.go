package service

import (
	"os"
	"study_quiz_backend/internal/config"
	"study_quiz_backend/internal/model"
	"study_quiz_backend/internal/repository"
	"study_quiz_backend/pkg/logger"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func newTestRepository(t *testing.T) *repository.QuizRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Quiz{}, &model.Question{}, &model.QuizSubmission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewQuizRepository(db)
}

func newTestDocumentService(t *testing.T) *DocumentService {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()
	return NewDocumentService(cfg, NewStorageService(cfg))
}
