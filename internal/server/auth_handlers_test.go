package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"riverfeed/internal/config"
	"riverfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func postJSON(t *testing.T, app *fiber.App, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(accounts *MockAccountRepository, timelines *MockTimelineRepository)
		expectedStatus int
	}{
		{
			name: "creates account with inherent feeds",
			body: map[string]string{"username": "luna", "password": "correct-horse"},
			mockSetup: func(accounts *MockAccountRepository, timelines *MockTimelineRepository) {
				accounts.On("GetByUsername", mock.Anything, "luna").
					Return(nil, models.NewNotFoundError("Can not find account"))
				accounts.On("Create", mock.Anything, mock.AnythingOfType("*models.Account")).
					Run(func(args mock.Arguments) {
						args.Get(1).(*models.Account).ID = 1
					}).Return(nil)
				timelines.On("CreateDefaults", mock.Anything, mock.AnythingOfType("*models.Account")).
					Return(nil)
			},
			expectedStatus: fiber.StatusCreated,
		},
		{
			name:           "rejects malformed username",
			body:           map[string]string{"username": "l!", "password": "correct-horse"},
			mockSetup:      func(*MockAccountRepository, *MockTimelineRepository) {},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name:           "rejects short password",
			body:           map[string]string{"username": "luna", "password": "short"},
			mockSetup:      func(*MockAccountRepository, *MockTimelineRepository) {},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name: "rejects taken username",
			body: map[string]string{"username": "luna", "password": "correct-horse"},
			mockSetup: func(accounts *MockAccountRepository, _ *MockTimelineRepository) {
				accounts.On("GetByUsername", mock.Anything, "luna").
					Return(&models.Account{ID: 7, Username: "luna"}, nil)
			},
			expectedStatus: fiber.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(MockAccountRepository)
			timelines := new(MockTimelineRepository)
			tt.mockSetup(accounts, timelines)

			s := &Server{
				config:       &config.Config{JWTSecret: "test_secret"},
				accountRepo:  accounts,
				timelineRepo: timelines,
			}
			app := fiber.New()
			app.Post("/signup", s.Signup)

			resp := postJSON(t, app, "/signup", tt.body)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == fiber.StatusCreated {
				body := decodeBody(t, resp)
				assert.NotEmpty(t, body["token"])
			}
			accounts.AssertExpectations(t)
			timelines.AssertExpectations(t)
		})
	}
}

func TestLogin(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	luna := &models.Account{
		ID:             1,
		Username:       "luna",
		Type:           models.AccountTypeUser,
		HashedPassword: string(hashed),
	}

	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(accounts *MockAccountRepository)
		expectedStatus int
	}{
		{
			name: "valid credentials",
			body: map[string]string{"username": "luna", "password": "correct-horse"},
			mockSetup: func(accounts *MockAccountRepository) {
				accounts.On("GetByUsername", mock.Anything, "luna").Return(luna, nil)
			},
			expectedStatus: fiber.StatusOK,
		},
		{
			name: "wrong password",
			body: map[string]string{"username": "luna", "password": "wrong"},
			mockSetup: func(accounts *MockAccountRepository) {
				accounts.On("GetByUsername", mock.Anything, "luna").Return(luna, nil)
			},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name: "unknown user",
			body: map[string]string{"username": "nobody", "password": "correct-horse"},
			mockSetup: func(accounts *MockAccountRepository) {
				accounts.On("GetByUsername", mock.Anything, "nobody").
					Return(nil, models.NewNotFoundError("Can not find account"))
			},
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name: "suspended account",
			body: map[string]string{"username": "ghost", "password": "correct-horse"},
			mockSetup: func(accounts *MockAccountRepository) {
				accounts.On("GetByUsername", mock.Anything, "ghost").
					Return(&models.Account{ID: 2, Username: "ghost", Type: models.AccountTypeUser, IsGone: true}, nil)
			},
			expectedStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(MockAccountRepository)
			tt.mockSetup(accounts)

			s := &Server{
				config:      &config.Config{JWTSecret: "test_secret"},
				accountRepo: accounts,
			}
			app := fiber.New()
			app.Post("/login", s.Login)

			resp := postJSON(t, app, "/login", tt.body)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == fiber.StatusOK {
				body := decodeBody(t, resp)
				assert.NotEmpty(t, body["token"])
			}
			accounts.AssertExpectations(t)
		})
	}
}
