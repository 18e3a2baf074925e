package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/app-prenava/nuri-backend-web-sub000/internal/middleware"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/models"
	"github.com/app-prenava/nuri-backend-web-sub000/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.GET("/me", authMW, h.me)
	a.PUT("/password", authMW, h.changePassword)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		switch {
		case errors.Is(err, errRoleNotRegistrable):
			response.BadRequest(c, "Only bidan and ibu_hamil accounts can self-register")
		case errors.Is(err, errEmailTaken):
			response.Conflict(c, "Email is already registered")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, toUserResponse(u))
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Email, dto.Password, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, errWrongCredentials):
			// One message for both unknown email and wrong password.
			response.Unauthorized(c, "Email or password is incorrect")
		case errors.Is(err, errAccountInactive):
			response.Unauthorized(c, "Account has been deactivated, please contact an administrator")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, loginResponse{Token: token, User: toUserResponse(u)})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetProfile(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toUserResponse(u))
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ChangePassword(middleware.CurrentUserID(c), &dto); err != nil {
		if errors.Is(err, errWrongOldPassword) {
			response.BadRequest(c, "Old password does not match")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OKMsg(c, "Password changed. All previous tokens are revoked.", nil)
}

func toUserResponse(u *models.UserModel) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
