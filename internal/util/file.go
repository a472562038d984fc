package util

import (
	"path/filepath"
	"strings"
)

// AllowedSourceExtensions 可上传的学习资料类型
var AllowedSourceExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".doc":  true,
	".docx": true,
}

// AllowedSourceFile 按扩展名校验上传文件
func AllowedSourceFile(filename string) bool {
	return AllowedSourceExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SourceMimeType 返回上传时使用的 Content-Type
func SourceMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
