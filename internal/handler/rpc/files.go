package rpc

import (
	"context"

	"docvault/internal/app/files"
	"docvault/internal/contracts"
	"docvault/internal/transport"

	"go.uber.org/zap"
)

func RegisterFileRoutes(server *transport.Server, svc files.FileService, logger *zap.Logger) {
	h := &fileHandler{svc: svc, logger: logger}

	server.Handle(contracts.PatternUploadFile, h.uploadFile)
	server.Handle(contracts.PatternGetFilesByUser, h.getFilesByUser)
	server.Handle(contracts.PatternGetFileByID, h.getFileByID)
	server.Handle(contracts.PatternDeleteFile, h.deleteFile)
}

type fileHandler struct {
	svc    files.FileService
	logger *zap.Logger
}

func (h *fileHandler) uploadFile(ctx context.Context, req transport.Envelope) (any, error) {
	var in contracts.UploadFileRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	h.logger.Debug("Upload received",
		zap.String("user_id", in.UserID),
		zap.String("original_name", in.File.OriginalName),
		zap.Int64("declared_size", in.File.Size))
	rec, err := h.svc.UploadFile(ctx, &in)
	return rec, toRPCError(err)
}

func (h *fileHandler) getFilesByUser(ctx context.Context, req transport.Envelope) (any, error) {
	var userID string
	if err := decode(req, &userID); err != nil {
		return nil, err
	}
	list, err := h.svc.GetFilesByUser(ctx, userID)
	return list, toRPCError(err)
}

func (h *fileHandler) getFileByID(ctx context.Context, req transport.Envelope) (any, error) {
	var ref contracts.FileRef
	if err := decode(req, &ref); err != nil {
		return nil, err
	}
	rec, err := h.svc.GetFileByID(ctx, &ref)
	return rec, toRPCError(err)
}

func (h *fileHandler) deleteFile(ctx context.Context, req transport.Envelope) (any, error) {
	var ref contracts.FileRef
	if err := decode(req, &ref); err != nil {
		return nil, err
	}
	resp, err := h.svc.DeleteFile(ctx, &ref)
	return resp, toRPCError(err)
}
