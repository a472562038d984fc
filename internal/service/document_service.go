package service

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"study_quiz_backend/internal/config"
	"study_quiz_backend/internal/util"
	"study_quiz_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService 负责学习资料的落盘与文本提取
type DocumentService struct {
	Config  *config.Config
	Storage *StorageService
}

func NewDocumentService(cfg *config.Config, storage *StorageService) *DocumentService {
	return &DocumentService{Config: cfg, Storage: storage}
}

// SaveUpload 把上传文件写入本地目录并镜像到配置的存储后端，
// 返回本地路径供后续文本提取使用。
func (s *DocumentService) SaveUpload(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	filename := uuid.New().String() + "_" + filepath.Base(fh.Filename)
	localPath := filepath.Join(s.Config.Storage.LocalPath, filename)

	if err := c.SaveUploadedFile(fh, localPath); err != nil {
		return "", err
	}

	// 对象存储失败不阻断生成流程，本地文件已可用
	if _, err := s.Storage.UploadFile(c.Request.Context(), filename, localPath, util.SourceMimeType(fh.Filename)); err != nil {
		logger.Log.Warn("Failed to mirror upload to storage backend",
			zap.String("filename", filename),
			zap.Error(err))
	}

	return localPath, nil
}

// ReadContent 按扩展名提取纯文本。未知类型返回空串而不是报错，
// 上传入口已经做过扩展名白名单校验。
func (s *DocumentService) ReadContent(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".docx":
		return readDocxText(path)
	default:
		// .doc 等旧格式目前不解析
		return "", nil
	}
}

// docx 是 zip 包，正文在 word/document.xml 里：
// 每个 <w:p> 为一个段落，段内文本在 <w:t> 节点中。
func readDocxText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var doc io.ReadCloser
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if doc == nil {
		return "", nil
	}
	defer doc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(doc)
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}
