package contracts

import "time"

// Durable queues, one per downstream service.
const (
	AuthQueue  = "auth_queue"
	FileQueue  = "file_queue"
	EmailQueue = "email_queue"
)

// Request–reply patterns served by the auth service.
const (
	PatternRegister             = "register"
	PatternLogin                = "login"
	PatternVerifyEmail          = "verify_email"
	PatternRequestPasswordReset = "request_password_reset"
	PatternResetPassword        = "reset_password"
	PatternGetUserProfile       = "get_user_profile"
)

// Request–reply patterns served by the file service.
const (
	PatternUploadFile     = "upload_file"
	PatternGetFilesByUser = "get_files_by_user"
	PatternGetFileByID    = "get_file_by_id"
	PatternDeleteFile     = "delete_file"
)

// Events consumed by the email service.
const (
	EventUserRegistered         = "user_registered"
	EventPasswordResetRequested = "password_reset_requested"
	EventDocumentUploaded       = "document_uploaded"
)

const (
	DefaultCallTimeout   = 10 * time.Second
	DefaultUploadTimeout = 30 * time.Second
)

// Queues returns every durable service queue.
func Queues() []string {
	return []string{AuthQueue, FileQueue, EmailQueue}
}
