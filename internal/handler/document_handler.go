package handler

import (
	"net/http"

	"hr-assistant-go/internal/hrerrors"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 处理文档管理相关的 HTTP 接口。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload 处理文档上传。
//
//	POST /api/documents  (multipart: file, category)
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, hrerrors.New(hrerrors.CodeInvalidInput, "Le fichier est obligatoire"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[Document] 打开上传文件失败: %v", err)
		writeError(c, hrerrors.Wrap(hrerrors.CodeDocumentProcessingError,
			"Le téléversement du document a échoué. Veuillez réessayer plus tard.", err))
		return
	}
	defer file.Close()

	category := c.PostForm("category")
	info, err := h.docService.Upload(c.Request.Context(), fileHeader.Filename, category, file, fileHeader.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// List 返回全部文档。
//
//	GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	infos, err := h.docService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

// Get 返回单个文档。
//
//	GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	info, err := h.docService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Categories 返回全部文档分类。
//
//	GET /api/documents/categories
func (h *DocumentHandler) Categories(c *gin.Context) {
	categories, err := h.docService.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Rename 修改文档显示名。
//
//	PUT /api/documents/:id
func (h *DocumentHandler) Rename(c *gin.Context) {
	var req model.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, hrerrors.New(hrerrors.CodeInvalidInput, "Le nom du fichier ne peut pas être vide"))
		return
	}

	info, err := h.docService.Rename(c.Request.Context(), c.Param("id"), req.NewFilename)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Delete 删除文档。
//
//	DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Download 重定向到原始文件的预签名下载链接。
//
//	GET /api/documents/:id/file
func (h *DocumentHandler) Download(c *gin.Context) {
	url, err := h.docService.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
