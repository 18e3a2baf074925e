package user

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/pagination"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
	sessionpkg "github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the admin account management endpoints. The caller
// wraps the group with the auth middleware and the admin role gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	u := rg.Group("/users")

	u.GET("", h.list)
	u.PATCH("/:id/activation", h.setActivation)
	u.POST("/:id/reset-password", h.resetPassword)
}

type activationDTO struct {
	Active *bool `json:"active" binding:"required"`
}

type resetPasswordDTO struct {
	NewPassword string `json:"new_password"`
}

type accountResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) list(c *gin.Context) {
	users, p, err := h.svc.List(pagination.FromContext(c), c.Query("role"))
	if err != nil {
		if errors.Is(err, errUnknownRole) {
			response.BadRequest(c, "Unknown role filter")
			return
		}
		response.InternalError(c, err)
		return
	}

	out := make([]accountResponse, 0, len(users))
	for i := range users {
		out = append(out, toAccountResponse(&users[i]))
	}
	response.Paged(c, out, p)
}

func (h *Handler) setActivation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var dto activationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SetActivation(id, *dto.Active); err != nil {
		if errors.Is(err, sessionpkg.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	if *dto.Active {
		response.OKMsg(c, "Account activated. The user must log in again.", nil)
		return
	}
	response.OKMsg(c, "Account deactivated. All previous tokens are revoked.", nil)
}

func (h *Handler) resetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	// Body is optional: an empty request generates a temporary password.
	var dto resetPasswordDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	pw, err := h.svc.ResetPassword(id, dto.NewPassword)
	if err != nil {
		if errors.Is(err, sessionpkg.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OKMsg(c, "Password reset. All previous tokens are revoked.", gin.H{
		"password": pw,
	})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid user id")
		return 0, false
	}
	return uint(id), true
}

func toAccountResponse(u *models.UserModel) accountResponse {
	return accountResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}
