package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/server/models"
	"github.com/luvhive/backend/internal/telegram"
)

type accountResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Username     string     `json:"username,omitempty"`
	PhotoURL     string     `json:"photo_url,omitempty"`
	IsPremium    bool       `json:"is_premium"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
	Created bool            `json:"created"`
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		Username:     a.Username,
		PhotoURL:     a.PhotoURL,
		IsPremium:    a.IsPremium,
		PremiumUntil: a.PremiumUntil,
	}
}

// handleTelegramLogin accepts the login-widget payload, verifies it, and
// returns a session for the matching account.
func (s *Server) handleTelegramLogin(c fiber.Ctx) error {
	var claim telegram.LoginClaim
	if err := c.Bind().JSON(&claim); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result, err := s.identity.LoginWithTelegram(c.Context(), &claim)
	if err != nil {
		switch {
		case errors.Is(err, telegram.ErrMalformedClaim):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed claim"})
		case errors.Is(err, telegram.ErrInvalidSignature), errors.Is(err, telegram.ErrStaleClaim):
			// terminal for this request; the client must restart the widget flow
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login rejected"})
		default:
			s.logger.Error(c.Context(), "telegram login failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.JSON(loginResponse{
		Token:   result.Token,
		Account: toAccountResponse(result.Account),
		Created: result.Created,
	})
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleRegister(c fiber.Ctx) error {
	var req registerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and password are required"})
	}

	result, err := s.identity.RegisterWithPassword(c.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
		}
		s.logger.Error(c.Context(), "registration failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusCreated).JSON(loginResponse{
		Token:   result.Token,
		Account: toAccountResponse(result.Account),
		Created: result.Created,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := s.identity.LoginWithPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		s.logger.Error(c.Context(), "login failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(loginResponse{
		Token:   result.Token,
		Account: toAccountResponse(result.Account),
	})
}

func (s *Server) handleMe(c fiber.Ctx) error {
	account, err := s.identity.GetAccount(c.Context(), userIDFromCtx(c))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		}
		s.logger.Error(c.Context(), "account lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(toAccountResponse(account))
}
