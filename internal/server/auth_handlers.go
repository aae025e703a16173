package server

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"riverfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]{3,25}$`)

// SignupRequest is the body for account registration.
type SignupRequest struct {
	Username string              `json:"username"`
	Password string              `json:"password"`
	Privacy  models.PrivacyLevel `json:"privacy"`
}

// Signup registers a user account and creates its inherent feeds.
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if !usernameRe.MatchString(req.Username) {
		return fail(c, models.NewValidationError("Username must be 3-25 alphanumeric characters"))
	}
	if len(req.Password) < 8 {
		return fail(c, models.NewValidationError("Password must be at least 8 characters"))
	}
	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	switch privacy {
	case models.PrivacyPublic, models.PrivacyProtected, models.PrivacyPrivate:
	default:
		return fail(c, models.NewValidationError("Unknown privacy level"))
	}

	if _, err := s.accountRepo.GetByUsername(ctx, req.Username); err == nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("Username already taken"))
	} else if !models.IsNotFound(err) {
		return fail(c, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	account := &models.Account{
		Username:       req.Username,
		Type:           models.AccountTypeUser,
		Privacy:        privacy,
		HashedPassword: string(hashed),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return fail(c, err)
	}
	if err := s.timelineRepo.CreateDefaults(ctx, account); err != nil {
		return fail(c, err)
	}

	token, err := s.generateToken(account.ID, account.Username)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  account,
	})
}

// LoginRequest is the body for authentication.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a bearer token.
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	account, err := s.accountRepo.GetByUsername(ctx, req.Username)
	if err != nil || account.IsGone || !account.IsUser() {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(req.Password)) != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(account.ID, account.Username)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  account,
	})
}

// generateToken creates a signed bearer token for the given user.
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      "riverfeed-api",
		"aud":      "riverfeed-client",
		"exp":      now.Add(time.Hour * 24 * 7).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
