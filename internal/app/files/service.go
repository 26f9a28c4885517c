package files

import (
	"context"
	"fmt"
	"path"
	"time"

	"docvault/internal/contracts"
	"docvault/internal/domain"
	"docvault/internal/infrastructure/storage"
	"docvault/internal/repository/file_repo"
	"docvault/internal/util"
	"docvault/internal/validation"

	"go.uber.org/zap"
)

const defaultURLExpiry = time.Hour

type EventEmitter interface {
	Emit(ctx context.Context, pattern string, payload any)
}

type FileService interface {
	UploadFile(ctx context.Context, req *contracts.UploadFileRequest) (*contracts.FileRecord, error)
	GetFilesByUser(ctx context.Context, userID string) ([]contracts.FileRecord, error)
	GetFileByID(ctx context.Context, ref *contracts.FileRef) (*contracts.FileRecord, error)
	DeleteFile(ctx context.Context, ref *contracts.FileRef) (*contracts.DeleteFileResponse, error)
}

type fileService struct {
	files     file_repo.FileRepository
	storage   storage.ObjectStorage
	emails    EventEmitter
	validator *validation.Validator
	urlExpiry time.Duration
	logger    *zap.Logger
}

func NewFileService(
	files file_repo.FileRepository,
	objects storage.ObjectStorage,
	emails EventEmitter,
	urlExpiry time.Duration,
	logger *zap.Logger,
) FileService {
	if urlExpiry <= 0 {
		urlExpiry = defaultURLExpiry
	}
	return &fileService{
		files:     files,
		storage:   objects,
		emails:    emails,
		validator: validation.New(),
		urlExpiry: urlExpiry,
		logger:    logger,
	}
}

func (s *fileService) UploadFile(ctx context.Context, req *contracts.UploadFileRequest) (*contracts.FileRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	// Reject on the declared size before paying for the decode.
	if err := domain.ValidateUpload(req.File.MimeType, req.File.Size); err != nil {
		return nil, err
	}
	content, err := req.File.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := domain.ValidateUpload(req.File.MimeType, int64(len(content))); err != nil {
		return nil, err
	}

	fileID := util.GenerateUUID()
	key := domain.ObjectKey(req.UserID, util.GenerateUUID(), req.File.OriginalName, req.File.MimeType)
	obj, err := s.storage.Put(ctx, key, content, req.File.MimeType)
	if err != nil {
		return nil, err
	}

	file := &domain.File{
		ID:           fileID,
		UserID:       req.UserID,
		OriginalName: req.File.OriginalName,
		Filename:     path.Base(obj.Key),
		MimeType:     req.File.MimeType,
		Size:         int64(len(content)),
		S3Key:        obj.Key,
		URL:          obj.URL,
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.storage.Delete(ctx, obj.Key); delErr != nil {
			s.logger.Error("Failed to remove orphaned object", zap.String("s3_key", obj.Key), zap.Error(delErr))
		}
		return nil, err
	}
	s.logger.Info("File uploaded",
		zap.String("file_id", file.ID),
		zap.String("user_id", file.UserID),
		zap.Int64("size", file.Size))

	if req.Email != "" {
		s.emails.Emit(ctx, contracts.EventDocumentUploaded, contracts.DocumentUploadedEvent{
			UserID:   file.UserID,
			FileID:   file.ID,
			Filename: file.OriginalName,
			Email:    req.Email,
		})
	}
	return mapFileToContract(file), nil
}

func (s *fileService) GetFilesByUser(ctx context.Context, userID string) ([]contracts.FileRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	files, err := s.files.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]contracts.FileRecord, 0, len(files))
	for i := range files {
		s.refreshURL(ctx, &files[i])
		out = append(out, *mapFileToContract(&files[i]))
	}
	return out, nil
}

func (s *fileService) GetFileByID(ctx context.Context, ref *contracts.FileRef) (*contracts.FileRecord, error) {
	if err := s.validator.Struct(ref); err != nil {
		return nil, err
	}
	file, err := s.files.FindByID(ctx, ref.FileID, ref.UserID)
	if err != nil {
		return nil, err
	}
	s.refreshURL(ctx, file)
	return mapFileToContract(file), nil
}

func (s *fileService) DeleteFile(ctx context.Context, ref *contracts.FileRef) (*contracts.DeleteFileResponse, error) {
	if err := s.validator.Struct(ref); err != nil {
		return nil, err
	}
	file, err := s.files.FindByID(ctx, ref.FileID, ref.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Delete(ctx, file.S3Key); err != nil {
		return nil, err
	}
	if err := s.files.Remove(ctx, file.ID, file.UserID); err != nil {
		return nil, err
	}
	s.logger.Info("File deleted", zap.String("file_id", file.ID), zap.String("user_id", file.UserID))
	return &contracts.DeleteFileResponse{Success: true, Message: "File deleted successfully"}, nil
}

// refreshURL replaces the stored presigned URL with a fresh one. The stored
// URL is kept if signing fails.
func (s *fileService) refreshURL(ctx context.Context, f *domain.File) {
	u, err := s.storage.SignedURL(ctx, f.S3Key, s.urlExpiry)
	if err != nil {
		s.logger.Warn("Failed to refresh file URL", zap.String("file_id", f.ID), zap.Error(err))
		return
	}
	f.URL = u
}

func mapFileToContract(f *domain.File) *contracts.FileRecord {
	return &contracts.FileRecord{
		ID:           f.ID,
		UserID:       f.UserID,
		OriginalName: f.OriginalName,
		Filename:     f.Filename,
		MimeType:     f.MimeType,
		Size:         f.Size,
		URL:          f.URL,
		UploadedAt:   f.UploadedAt,
	}
}
