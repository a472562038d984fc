package util

import "errors"

var (
	ErrQuizNotFound  = errors.New("测验不存在")
	ErrAPIKeyMissing = errors.New("AI API key not configured")
)
