package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service is the engine API the transport calls into.
type Service interface {
	Register(ctx context.Context, r models.Registration) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	ResetPassword(ctx context.Context, email, newPassword string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, u models.UserUpdate) (*models.User, error)
	ValidateToken(ctx context.Context, token string) (*models.TokenClaims, error)
}

// Handlers return domain errors; the status interceptor turns them into
// gRPC statuses.

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.RegisterRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	user, err := s.auth.Register(ctx, req.Registration())
	if err != nil {
		return nil, err
	}
	return encode(models.NewUserView(user))
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.LoginRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return encode(models.NewLoginResponse(res))
}

func (s *GRPCServer) ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.ResetPasswordRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	user, err := s.auth.ResetPassword(ctx, req.Email, req.NewPassword)
	if err != nil {
		return nil, err
	}
	return encode(models.NewUserView(user))
}

func (s *GRPCServer) UpdateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.UpdateUserRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID <= 0 {
		return nil, common.NewError(common.KindValidation, errors.New("id is required"))
	}

	user, err := s.auth.UpdateUser(ctx, req.ID, req.Update())
	if err != nil {
		return nil, err
	}
	return encode(models.NewUserView(user))
}

func (s *GRPCServer) ValidateToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.ValidateTokenRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.Token == "" {
		return nil, common.NewError(common.KindValidation, errors.New("token is required"))
	}

	claims, err := s.auth.ValidateToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	return encode(models.ValidateTokenResponse{Valid: true, Payload: claims})
}

// decode maps a Struct onto a request body through its JSON form.
func decode(in *structpb.Struct, v any) error {
	b, err := in.MarshalJSON()
	if err != nil {
		return common.NewError(common.KindValidation, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.NewError(common.KindValidation, err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return out, nil
}
