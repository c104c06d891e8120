package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

type registerBody struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *AuthController) Register(c *ctx.Context) {
	var body registerBody
	if !c.BindJSON(&body) {
		return
	}
	u, err := h.service.Register(c.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Created(u)
}

type loginBody struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthController) Login(c *ctx.Context) {
	var body loginBody
	if !c.BindJSON(&body) {
		return
	}
	sess, err := h.service.Login(c.Context(), body.Email, body.Password)
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(sess)
}

func (h *AuthController) Me(c *ctx.Context) {
	uid, ok := c.UserID()
	if !ok {
		return
	}
	u, err := h.service.Me(c.Context(), uid)
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	c.Success(u)
}
