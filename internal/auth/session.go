package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

type AdminResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newAdminResponse(a *models.Admin) AdminResponse {
	return AdminResponse{ID: a.ID, Email: a.Email, Name: a.Name}
}

type LoginInput struct {
	Body struct {
		Email    string `json:"email" format:"email" doc:"Admin email address"`
		Password string `json:"password" minLength:"1"`
	}
}

type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      AdminResponse
}

func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	admin, err := h.Authenticate(ctx, input.Body.Email, input.Body.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return nil, huma.Error401Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to log in")
	}

	token, err := h.GenerateToken(admin.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}

	return &LoginOutput{
		SetCookie: SessionCookie(token),
		Body:      newAdminResponse(admin),
	}, nil
}

type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

func (h *AuthHandler) HandleLogout(ctx context.Context, input *struct{}) (*LogoutOutput, error) {
	return &LogoutOutput{SetCookie: ExpiredCookie()}, nil
}

type MeOutput struct {
	Body AdminResponse
}

func (h *AuthHandler) currentAdmin(ctx context.Context, input AuthInput) (*models.Admin, error) {
	adminID, err := h.Authorize(ctx, input)
	if err != nil {
		return nil, err
	}

	var admin models.Admin
	if err := h.db.WithContext(ctx).First(&admin, adminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error401Unauthorized("Unauthorized")
		}
		return nil, huma.Error500InternalServerError("Database error")
	}
	return &admin, nil
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	admin, err := h.currentAdmin(ctx, *input)
	if err != nil {
		return nil, err
	}
	return &MeOutput{Body: newAdminResponse(admin)}, nil
}

type UpdateMeInput struct {
	AuthInput
	Body struct {
		Email    *string `json:"email,omitempty" format:"email"`
		Name     *string `json:"name,omitempty"`
		Password *string `json:"password,omitempty" minLength:"8"`
	}
}

func (h *AuthHandler) HandleUpdateMe(ctx context.Context, input *UpdateMeInput) (*MeOutput, error) {
	admin, err := h.currentAdmin(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	if input.Body.Email != nil {
		email := normalizeEmail(*input.Body.Email)
		if email != admin.Email {
			var taken int64
			if err := h.db.WithContext(ctx).Model(&models.Admin{}).Where("email = ? AND id <> ?", email, admin.ID).Count(&taken).Error; err != nil {
				return nil, huma.Error500InternalServerError("Database error")
			}
			if taken > 0 {
				return nil, huma.Error409Conflict("Email is already in use")
			}
			admin.Email = email
		}
	}
	if input.Body.Name != nil {
		admin.Name = strings.TrimSpace(*input.Body.Name)
	}
	if input.Body.Password != nil {
		hash, err := HashPassword(*input.Body.Password)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to hash password")
		}
		admin.PasswordHash = hash
	}

	if err := h.db.WithContext(ctx).Save(admin).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to update admin")
	}
	return &MeOutput{Body: newAdminResponse(admin)}, nil
}

type CreateAdminInput struct {
	AuthInput
	Body struct {
		Email    string `json:"email" format:"email"`
		Name     string `json:"name"`
		Password string `json:"password" minLength:"8"`
	}
}

type CreateAdminOutput struct {
	Body AdminResponse
}

// HandleCreateAdmin lets a signed-in admin invite another admin.
func (h *AuthHandler) HandleCreateAdmin(ctx context.Context, input *CreateAdminInput) (*CreateAdminOutput, error) {
	if _, err := h.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	admin, err := CreateAdmin(ctx, h.db, input.Body.Email, input.Body.Name, input.Body.Password)
	if errors.Is(err, ErrAdminExists) {
		return nil, huma.Error409Conflict("Admin already exists")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to create admin")
	}
	return &CreateAdminOutput{Body: newAdminResponse(admin)}, nil
}
