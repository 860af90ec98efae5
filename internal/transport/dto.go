package transport

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/devteria/identity_service/internal/apperr"
	"github.com/devteria/identity_service/internal/models"
)

// ApiResponse is the uniform envelope for every endpoint. Code 1000 means
// success; failures carry the domain error code.
type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

const SuccessCode = 1000

func OK(result any) ApiResponse {
	return ApiResponse{Code: SuccessCode, Result: result}
}

type AuthenticationRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r AuthenticationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type AuthenticationResponse struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

type IntrospectRequest struct {
	Token string `json:"token"`
}

type IntrospectResponse struct {
	Valid bool `json:"valid"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
}

func (r RegisterRequest) Validate() error {
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if r.DOB != "" {
		if _, err := ParseDOB(r.DOB); err != nil {
			return err
		}
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

// ParseDOB parses the wire date and enforces the minimum age.
func (r RegisterRequest) ParsedDOB() *time.Time {
	if r.DOB == "" {
		return nil
	}
	t, err := ParseDOB(r.DOB)
	if err != nil {
		return nil
	}
	return &t
}

type RegisterResponse struct {
	Message          string `json:"message"`
	VerificationCode string `json:"verification_code"`
	Success          bool   `json:"success"`
}

type VerifyEmailRequest struct {
	VerificationCode string `json:"verification_code"`
}

func (r VerifyEmailRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.VerificationCode, validation.Required, validation.Length(6, 6), is.Digit),
	); err != nil {
		return apperr.ErrInvalidVerificationCode
	}
	return nil
}

type VerifyEmailResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
	); err != nil {
		return apperr.ErrPasswordInvalid
	}
	return ValidatePassword(r.NewPassword)
}

type ChangePasswordResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type SendPasswordResetCodeRequest struct {
	Username string `json:"username"`
}

func (r SendPasswordResetCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
	)
}

type ForgotPasswordRequest struct {
	Username         string `json:"username"`
	VerificationCode string `json:"verification_code"`
	NewPassword      string `json:"new_password"`
}

func (r ForgotPasswordRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.VerificationCode, validation.Required),
	); err != nil {
		return apperr.ErrInvalidVerificationCode
	}
	return ValidatePassword(r.NewPassword)
}

type ForgotPasswordResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type UserCreationRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
}

func (r UserCreationRequest) Validate() error {
	reg := RegisterRequest{
		Username: r.Username, Password: r.Password, Email: r.Email,
		FirstName: r.FirstName, LastName: r.LastName, DOB: r.DOB,
	}
	return reg.Validate()
}

func (r UserCreationRequest) ParsedDOB() *time.Time {
	reg := RegisterRequest{DOB: r.DOB}
	return reg.ParsedDOB()
}

type UserUpdateRequest struct {
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	DOB       string   `json:"dob"`
	Roles     []string `json:"roles"`
}

func (r UserUpdateRequest) Validate() error {
	if r.Password != "" {
		if err := ValidatePassword(r.Password); err != nil {
			return err
		}
	}
	if r.DOB != "" {
		if _, err := ParseDOB(r.DOB); err != nil {
			return err
		}
	}
	return nil
}

func (r UserUpdateRequest) ParsedDOB() *time.Time {
	reg := RegisterRequest{DOB: r.DOB}
	return reg.ParsedDOB()
}

type UserResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DOB        string    `json:"dob,omitempty"`
	IsVerified bool      `json:"is_verified"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ToUserResponse(u *models.User) UserResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Name)
	}
	resp := UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsVerified: u.IsVerified,
		Roles:      roles,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if u.DOB != nil {
		resp.DOB = u.DOB.Format(dobLayout)
	}
	return resp
}
