package http

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"longevity-advisor/internal/core"
	"longevity-advisor/internal/db"
	"longevity-advisor/pkg"
)

const historyLimit = 10

var phonePattern = regexp.MustCompile(`^1\d{10}$`)

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, pkg.ErrorResponse{Error: msg})
}

func (s *Server) handleChat(c *gin.Context) {
	var req pkg.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		fail(c, http.StatusBadRequest, "question is required")
		return
	}
	sid := core.SessionKey(req.SessionID, req.UserID)
	resp, err := s.Chat.Reply(c.Request.Context(), sid, req.UserID, req.Question)
	if err != nil {
		slog.Error("chat failed", "session", sid, "error", err)
		fail(c, http.StatusInternalServerError, "Server error")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "未检测到文件")
		return
	}
	if file.Size > s.maxUpload() {
		fail(c, http.StatusRequestEntityTooLarge, "文件过大")
		return
	}
	userID := c.PostForm("userId")
	sid := core.SessionKey(c.PostForm("sessionId"), userID)

	if err := os.MkdirAll(s.Intake.UploadDir, 0o755); err != nil {
		slog.Error("create upload dir", "error", err)
		fail(c, http.StatusInternalServerError, "服务器处理失败")
		return
	}
	dst := s.Intake.UploadPath(file.Filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		slog.Error("save upload", "error", err)
		fail(c, http.StatusInternalServerError, "服务器处理失败")
		return
	}
	resp, err := s.Intake.Ingest(c.Request.Context(), sid, userID, dst)
	if err != nil {
		slog.Error("upload processing failed", "session", sid, "file", dst, "error", err)
		fail(c, http.StatusInternalServerError, "服务器处理失败")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUseSample(c *gin.Context) {
	var req pkg.SessionRequest
	_ = c.ShouldBindJSON(&req)
	sid := core.SessionKey(req.SessionID, req.UserID)
	resp, err := s.Intake.UseSample(c.Request.Context(), sid, req.UserID)
	if errors.Is(err, core.ErrNoSample) {
		fail(c, http.StatusNotFound, "示例文件不存在")
		return
	}
	if err != nil {
		slog.Error("sample processing failed", "session", sid, "error", err)
		fail(c, http.StatusInternalServerError, "服务器处理失败")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRegister(c *gin.Context) {
	if s.Users == nil {
		fail(c, http.StatusServiceUnavailable, "database disabled")
		return
	}
	var req pkg.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "手机号或密码格式不正确")
		return
	}
	if !phonePattern.MatchString(req.Phone) || req.Password == "" {
		fail(c, http.StatusBadRequest, "手机号或密码格式不正确")
		return
	}
	if req.Age < 1 || req.Age > 150 {
		fail(c, http.StatusBadRequest, "请输入有效的年龄 (1-150)")
		return
	}
	if strings.TrimSpace(req.Gender) == "" {
		fail(c, http.StatusBadRequest, "性别不能为空")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("hash password", "error", err)
		fail(c, http.StatusInternalServerError, "数据库错误")
		return
	}
	if _, err := s.Users.CreateUser(c.Request.Context(), req.Phone, string(hash), req.Age, req.Gender); err != nil {
		if errors.Is(err, db.ErrPhoneTaken) {
			fail(c, http.StatusConflict, "账号已存在")
			return
		}
		slog.Error("register failed", "error", err)
		fail(c, http.StatusInternalServerError, "数据库错误")
		return
	}
	c.JSON(http.StatusOK, pkg.StatusResponse{Success: true, Message: "注册成功"})
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.Users == nil {
		fail(c, http.StatusServiceUnavailable, "database disabled")
		return
	}
	var req pkg.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "手机号或密码格式不正确")
		return
	}
	id, hash, err := s.Users.GetCredentials(c.Request.Context(), req.Phone)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusUnauthorized, "账号不存在")
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		fail(c, http.StatusInternalServerError, "数据库错误")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "密码错误")
		return
	}
	c.JSON(http.StatusOK, pkg.LoginResponse{Success: true, UserID: id})
}

func (s *Server) handleUpdatePrompt(c *gin.Context) {
	var req pkg.UpdatePromptRequest
	_ = c.ShouldBindJSON(&req)
	sid := core.SessionKey(req.SessionID, req.UserID)
	err := s.Chat.SetPrompt(c.Request.Context(), sid, req.Prompt)
	switch {
	case errors.Is(err, core.ErrEmptyPrompt):
		fail(c, http.StatusBadRequest, "提示词不能为空")
	case err != nil:
		slog.Error("update prompt failed", "session", sid, "error", err)
		fail(c, http.StatusInternalServerError, "Server error")
	default:
		c.JSON(http.StatusOK, pkg.StatusResponse{Success: true, Message: "提示词已更新"})
	}
}

func (s *Server) handleSwitchModel(c *gin.Context) {
	var req pkg.SwitchModelRequest
	_ = c.ShouldBindJSON(&req)
	sid := core.SessionKey(req.SessionID, req.UserID)
	err := s.Chat.SwitchModel(c.Request.Context(), sid, req.Model)
	switch {
	case errors.Is(err, core.ErrUnknownModel):
		fail(c, http.StatusBadRequest, "无效的模型名称")
	case err != nil:
		slog.Error("switch model failed", "session", sid, "error", err)
		fail(c, http.StatusInternalServerError, "Server error")
	default:
		c.JSON(http.StatusOK, pkg.StatusResponse{Success: true, Message: "已切换到 " + req.Model + " 模型"})
	}
}

func (s *Server) handleNewChat(c *gin.Context) {
	var req pkg.SessionRequest
	_ = c.ShouldBindJSON(&req)
	sid := core.SessionKey(req.SessionID, req.UserID)
	if err := s.Chat.NewChat(c.Request.Context(), sid); err != nil {
		slog.Error("new chat failed", "session", sid, "error", err)
		fail(c, http.StatusInternalServerError, "创建新会话失败")
		return
	}
	c.JSON(http.StatusOK, pkg.StatusResponse{Success: true, Message: "已开始新的对话"})
}

func (s *Server) handleDownloadPDF(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		fail(c, http.StatusBadRequest, "无效的文件名")
		return
	}
	path := filepath.Join(s.PDFDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		fail(c, http.StatusNotFound, "文件不存在")
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(path, name)
}

func (s *Server) handlePDFHistory(c *gin.Context) {
	if s.History == nil {
		fail(c, http.StatusServiceUnavailable, "database disabled")
		return
	}
	reports, err := s.History.ListPDFReports(c.Request.Context(), c.Param("userId"), historyLimit)
	if err != nil {
		slog.Error("pdf history failed", "error", err)
		fail(c, http.StatusInternalServerError, "获取历史失败")
		return
	}
	for i := range reports {
		reports[i].Filename = filepath.Base(reports[i].PDFPath)
		reports[i].DownloadURL = core.DownloadPrefix + reports[i].Filename
	}
	if reports == nil {
		reports = []pkg.PDFReport{}
	}
	c.JSON(http.StatusOK, pkg.PDFHistoryResponse{Success: true, Reports: reports})
}
