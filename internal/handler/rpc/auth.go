package rpc

import (
	"context"

	"docvault/internal/app/auth"
	"docvault/internal/contracts"
	"docvault/internal/transport"

	"go.uber.org/zap"
)

// RegisterAuthRoutes binds every auth pattern to the service.
func RegisterAuthRoutes(server *transport.Server, svc auth.AuthService, logger *zap.Logger) {
	h := &authHandler{svc: svc, logger: logger}

	server.Handle(contracts.PatternRegister, h.register)
	server.Handle(contracts.PatternLogin, h.login)
	server.Handle(contracts.PatternVerifyEmail, h.verifyEmail)
	server.Handle(contracts.PatternRequestPasswordReset, h.requestPasswordReset)
	server.Handle(contracts.PatternResetPassword, h.resetPassword)
	server.Handle(contracts.PatternGetUserProfile, h.getUserProfile)
}

type authHandler struct {
	svc    auth.AuthService
	logger *zap.Logger
}

func (h *authHandler) register(ctx context.Context, req transport.Envelope) (any, error) {
	var in contracts.RegisterRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	user, err := h.svc.Register(ctx, &in)
	return user, toRPCError(err)
}

func (h *authHandler) login(ctx context.Context, req transport.Envelope) (any, error) {
	var in contracts.LoginRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	resp, err := h.svc.Login(ctx, &in)
	return resp, toRPCError(err)
}

func (h *authHandler) verifyEmail(ctx context.Context, req transport.Envelope) (any, error) {
	var token string
	if err := decode(req, &token); err != nil {
		return nil, err
	}
	return nil, toRPCError(h.svc.VerifyEmail(ctx, token))
}

func (h *authHandler) requestPasswordReset(ctx context.Context, req transport.Envelope) (any, error) {
	var in contracts.PasswordResetRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	return nil, toRPCError(h.svc.RequestPasswordReset(ctx, &in))
}

func (h *authHandler) resetPassword(ctx context.Context, req transport.Envelope) (any, error) {
	var in contracts.ResetPasswordRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	return nil, toRPCError(h.svc.ResetPassword(ctx, &in))
}

func (h *authHandler) getUserProfile(ctx context.Context, req transport.Envelope) (any, error) {
	var userID string
	if err := decode(req, &userID); err != nil {
		return nil, err
	}
	user, err := h.svc.GetUserProfile(ctx, userID)
	return user, toRPCError(err)
}
