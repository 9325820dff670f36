package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/metrics"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeService struct {
	user   *models.User
	claims *models.TokenClaims
	err    error

	gotRegistration models.Registration
	gotID           int64
	gotUpdate       models.UserUpdate
}

func (f *fakeService) Register(_ context.Context, r models.Registration) (*models.User, error) {
	f.gotRegistration = r
	return f.user, f.err
}

func (f *fakeService) Login(context.Context, string, string) (*models.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResult{User: f.user, Token: "tok"}, nil
}

func (f *fakeService) ResetPassword(context.Context, string, string) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeService) UpdateUser(_ context.Context, id int64, u models.UserUpdate) (*models.User, error) {
	f.gotID, f.gotUpdate = id, u
	return f.user, f.err
}

func (f *fakeService) ValidateToken(context.Context, string) (*models.TokenClaims, error) {
	return f.claims, f.err
}

func sampleUser() *models.User {
	return &models.User{
		ID: 7, Name: "Ann", Email: "ann@x.com", Password: "aa:bb",
		Status: models.StatusActive, Type: models.TypeUser,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CreatedBy: "system", UpdatedBy: "system",
	}
}

type harness struct {
	client  *AuthClient
	health  healthpb.HealthClient
	metrics *metrics.Metrics
}

func startServer(t *testing.T, svc Service) *harness {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	m := metrics.New()
	s := NewGRPCServer("bufconn", logging.Nop(), svc, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})

	return &harness{client: NewAuthClient(conn), health: healthpb.NewHealthClient(conn), metrics: m}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRegister(t *testing.T) {
	svc := &fakeService{user: sampleUser()}
	h := startServer(t, svc)

	var header metadata.MD
	out, err := h.client.Register(context.Background(), mustStruct(t, map[string]any{
		"name": "Ann", "email": "ann@x.com", "password": "secret", "type": "admin",
	}), grpc.Header(&header))
	require.NoError(t, err)

	assert.Equal(t, models.Registration{Name: "Ann", Email: "ann@x.com", Password: "secret", Type: models.TypeAdmin}, svc.gotRegistration)

	fields := out.AsMap()
	assert.Equal(t, float64(7), fields["id"])
	assert.Equal(t, "ann@x.com", fields["email"])
	assert.NotContains(t, fields, "password")
	assert.Len(t, header.Get(common.RequestIDHeader), 1)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := startServer(t, &fakeService{user: sampleUser()})

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.RequestIDHeader, "req-123")
	var header metadata.MD
	_, err := h.client.ResetPassword(ctx, mustStruct(t, map[string]any{"email": "ann@x.com", "newPassword": "n"}), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-123"}, header.Get(common.RequestIDHeader))
}

func TestLogin(t *testing.T) {
	h := startServer(t, &fakeService{user: sampleUser()})

	out, err := h.client.Login(context.Background(), mustStruct(t, map[string]any{"email": "ann@x.com", "password": "secret"}))
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, "tok", fields["token"])
	user := fields["user"].(map[string]any)
	assert.Equal(t, "Ann", user["name"])
	assert.NotContains(t, user, "password")

	assert.Equal(t, 1.0, metricsCounter(h.metrics, "login", "ok"))
}

func metricsCounter(m *metrics.Metrics, op, result string) float64 {
	families, _ := m.Registry().Gather()
	for _, f := range families {
		if f.GetName() != "msauth_operations_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["transport"] == "grpc" && labels["operation"] == op && labels["result"] == result {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestUpdateUser(t *testing.T) {
	svc := &fakeService{user: sampleUser()}
	h := startServer(t, svc)

	_, err := h.client.UpdateUser(context.Background(), mustStruct(t, map[string]any{"id": 7, "name": "New", "status": "inactive"}))
	require.NoError(t, err)

	assert.Equal(t, int64(7), svc.gotID)
	require.NotNil(t, svc.gotUpdate.Name)
	assert.Equal(t, "New", *svc.gotUpdate.Name)
	require.NotNil(t, svc.gotUpdate.Status)
	assert.Equal(t, models.StatusInactive, *svc.gotUpdate.Status)
	assert.Nil(t, svc.gotUpdate.Email)
	assert.Nil(t, svc.gotUpdate.Password)

	_, err = h.client.UpdateUser(context.Background(), mustStruct(t, map[string]any{"name": "New"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "id is required", status.Convert(err).Message())
}

func TestValidateToken(t *testing.T) {
	h := startServer(t, &fakeService{claims: &models.TokenClaims{Email: "ann@x.com", Name: "Ann"}})

	out, err := h.client.ValidateToken(context.Background(), mustStruct(t, map[string]any{"token": "abc"}))
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, true, fields["valid"])
	assert.Equal(t, map[string]any{"email": "ann@x.com", "name": "Ann"}, fields["payload"])

	_, err = h.client.ValidateToken(context.Background(), mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrDuplicateEmail, codes.AlreadyExists},
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{common.ErrAccountInactive, codes.PermissionDenied},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.StoreUnavailable(errors.New("db down")), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := startServer(t, &fakeService{err: tt.err})
			_, err := h.client.Login(context.Background(), mustStruct(t, map[string]any{"email": "a", "password": "b"}))
			assert.Equal(t, tt.code, status.Code(err))
			assert.NotContains(t, status.Convert(err).Message(), "db down")
		})
	}
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.NotFound, status.Code(toStatus(common.ErrUserNotFound)))
	assert.Equal(t, codes.AlreadyExists, status.Code(toStatus(common.ErrEmailConflict)))
	st := status.Convert(toStatus(common.NewError(common.KindValidation, errors.New("name is required"))))
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "name is required", st.Message())
	assert.Equal(t, codes.Internal, status.Code(toStatus(errors.New("boom"))))

	canceled := status.Error(codes.Canceled, "gone")
	assert.Equal(t, canceled, toStatus(canceled))
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "reset_password", operationName("/msauth.v1.AuthService/ResetPassword"))
	assert.Equal(t, "Other", operationName("/x.Y/Other"))
}

func TestHealth(t *testing.T) {
	h := startServer(t, &fakeService{})

	resp, err := h.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop(), &fakeService{}, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop(), &fakeService{}, metrics.New())
	assert.Error(t, srv.Run(context.Background()))
}
