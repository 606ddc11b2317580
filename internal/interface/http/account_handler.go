package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/internal/infrastructure/storage"
	"github.com/oksasatya/authshop/internal/interface/middleware"
	"github.com/oksasatya/authshop/pkg/helpers"
	"github.com/oksasatya/authshop/pkg/response"
	"github.com/oksasatya/authshop/pkg/validation"
)

// MaxProfileImageBytes caps a registration upload.
const MaxProfileImageBytes = 5 << 20

type AccountHandler struct {
	Svc           *application.Service
	Cookies       *helpers.Manager
	Logger        *logrus.Logger
	PublicBaseURL string
}

func NewAccountHandler(svc *application.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool, publicBaseURL string) *AccountHandler {
	return &AccountHandler{
		Svc:           svc,
		Cookies:       helpers.NewCookie(cookieDomain, cookieSecure),
		Logger:        logger,
		PublicBaseURL: publicBaseURL,
	}
}

type registerRequest struct {
	Name            string `json:"name" form:"name" binding:"max=100"`
	Email           string `json:"email" form:"email" binding:"max=254"`
	Password        string `json:"password" form:"password" binding:"pwd"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"pwd"`
}

type verifyOTPRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp" binding:"omitempty,numeric,len=6"`
}

type emailRequest struct {
	Email string `json:"email" form:"email" binding:"max=254"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"max=254"`
	Password string `json:"password" form:"password" binding:"pwd"`
}

type newPasswordRequest struct {
	Password        string `json:"password" form:"password" binding:"pwd"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"pwd"`
}

type resetDirectRequest struct {
	Email           string `json:"email" form:"email" binding:"max=254"`
	Password        string `json:"password" form:"password" binding:"pwd"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"pwd"`
}

type changeByEmailRequest struct {
	Email       string `json:"email" form:"email" binding:"max=254"`
	OldPassword string `json:"oldPassword" form:"oldPassword" binding:"pwd"`
	NewPassword string `json:"newPassword" form:"newPassword" binding:"pwd"`
}

// bind decodes JSON, urlencoded or multipart bodies by Content-Type.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}

func (h *AccountHandler) imageURL(ref string) string {
	return storage.PublicURL(h.PublicBaseURL, ref)
}

func (h *AccountHandler) userView(p entity.Profile) gin.H {
	return gin.H{
		"id":           p.ID,
		"name":         p.Name,
		"email":        p.Email,
		"profileImage": h.imageURL(p.ProfileImagePath),
	}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	in := application.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}

	if fh, err := c.FormFile("profileImage"); err == nil {
		if fh.Size > MaxProfileImageBytes {
			response.Error(c, http.StatusBadRequest, "Profile image is too large", nil)
			return
		}
		ct := fh.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "image/") {
			response.Error(c, http.StatusBadRequest, "Profile image must be an image", nil)
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Unreadable profile image", nil)
			return
		}
		defer func() { _ = f.Close() }()
		in.ProfileImage = &application.Upload{Filename: fh.Filename, ContentType: ct, Size: fh.Size, Body: f}
	}

	res, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	var image any
	if res.ProfileImage != "" {
		image = h.imageURL(res.ProfileImage)
	}
	response.Success(c, http.StatusCreated, "User registered. Please verify your email via OTP.", gin.H{
		"userId":       res.AccountID,
		"profileImage": image,
	})
}

func (h *AccountHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Email verified successfully", gin.H{"verified": true})
}

func (h *AccountHandler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.ResendOTP(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "OTP resent successfully", nil)
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Cookies.SetSession(c, res.Token, res.ExpiresAt)
	response.Success(c, http.StatusOK, "Login successful", gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       h.userView(res.Profile),
	})
}

func (h *AccountHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AccountHandler) SendResetEmail(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.SendResetEmail(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Password reset link sent", nil)
}

func (h *AccountHandler) ResetPasswordByToken(c *gin.Context) {
	var req newPasswordRequest
	if !bind(c, &req) {
		return
	}
	err := h.Svc.ResetPasswordByToken(c.Request.Context(), c.Param("id"), c.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Password reset successful", nil)
}

// ResetPasswordDirect changes a password knowing only the email address.
// Kept for existing clients; every use is logged by the service.
func (h *AccountHandler) ResetPasswordDirect(c *gin.Context) {
	var req resetDirectRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.ResetPasswordDirect(c.Request.Context(), req.Email, req.Password, req.ConfirmPassword); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Password reset successfully", nil)
}

func (h *AccountHandler) CheckEmail(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.Svc.CheckEmail(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Email exists", gin.H{
		"user": gin.H{"id": p.ID, "email": p.Email},
	})
}

func (h *AccountHandler) ChangePasswordByEmail(c *gin.Context) {
	var req changeByEmailRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.ChangePasswordByEmail(c.Request.Context(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Password changed successfully", nil)
}

func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req newPasswordRequest
	if !bind(c, &req) {
		return
	}
	me, ok := middleware.CurrentAccount(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authorized", nil)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), me.ID, req.Password, req.ConfirmPassword); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Password updated", nil)
}

func (h *AccountHandler) LoggedUser(c *gin.Context) {
	me, ok := middleware.CurrentAccount(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authorized", nil)
		return
	}
	p, err := h.Svc.CurrentAccount(c.Request.Context(), me.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User fetched", gin.H{"user": h.userView(p)})
}

func (h *AccountHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	res, err := h.Svc.SearchAccounts(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, err)
		return
	}
	users := make([]gin.H, 0, len(res))
	for _, p := range res {
		u := h.userView(p)
		u["isVerified"] = p.IsVerified
		users = append(users, u)
	}
	response.Success(c, http.StatusOK, "Users found", gin.H{"users": users})
}
