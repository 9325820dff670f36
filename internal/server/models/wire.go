package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Request and response bodies shared by the gRPC and HTTP transports.

type RegisterRequest struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Status    UserStatus `json:"status,omitempty"`
	Type      UserType   `json:"type,omitempty"`
	CreatedBy string     `json:"createdBy,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
}

// UnmarshalJSON also accepts the field names of the earlier REST API
// (nombre, estado, tipo, creadoPor, actualizadoPor). A field given under both
// names takes the current name.
func (r *RegisterRequest) UnmarshalJSON(b []byte) error {
	type body RegisterRequest
	var in struct {
		body
		Nombre         string     `json:"nombre"`
		Estado         UserStatus `json:"estado"`
		Tipo           UserType   `json:"tipo"`
		CreadoPor      string     `json:"creadoPor"`
		ActualizadoPor string     `json:"actualizadoPor"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*r = RegisterRequest(in.body)
	fill(&r.Name, in.Nombre)
	fill(&r.Status, in.Estado)
	fill(&r.Type, in.Tipo)
	fill(&r.CreatedBy, in.CreadoPor)
	fill(&r.UpdatedBy, in.ActualizadoPor)
	return nil
}

func fill[T ~string](dst *T, alias T) {
	if *dst == "" {
		*dst = alias
	}
}

func (r RegisterRequest) Registration() Registration {
	return Registration(r)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// UpdateUserRequest carries the id in the body for PUT /update and over gRPC;
// PUT /users/:id takes it from the path instead.
type UpdateUserRequest struct {
	ID       int64       `json:"id,omitempty"`
	Name     *string     `json:"name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Password *string     `json:"password,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
}

// UnmarshalJSON also accepts nombre and estado, as RegisterRequest does.
func (r *UpdateUserRequest) UnmarshalJSON(b []byte) error {
	type body UpdateUserRequest
	var in struct {
		body
		Nombre *string     `json:"nombre"`
		Estado *UserStatus `json:"estado"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*r = UpdateUserRequest(in.body)
	if r.Name == nil {
		r.Name = in.Nombre
	}
	if r.Status == nil {
		r.Status = in.Estado
	}
	return nil
}

func (r UpdateUserRequest) Update() UserUpdate {
	return UserUpdate{Name: r.Name, Email: r.Email, Password: r.Password, Status: r.Status}
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// UserView is a User as shown to clients: everything but the password.
type UserView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Status    UserStatus `json:"status"`
	Type      UserType   `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	CreatedBy string     `json:"createdBy"`
	UpdatedBy string     `json:"updatedBy"`
}

func NewUserView(u *User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Status:    u.Status,
		Type:      u.Type,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		CreatedBy: u.CreatedBy,
		UpdatedBy: u.UpdatedBy,
	}
}

type LoginResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

func NewLoginResponse(r *LoginResult) LoginResponse {
	return LoginResponse{User: NewUserView(r.User), Token: r.Token}
}

type ValidateTokenResponse struct {
	Valid   bool         `json:"valid"`
	Payload *TokenClaims `json:"payload,omitempty"`
	Message string       `json:"message,omitempty"`
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
