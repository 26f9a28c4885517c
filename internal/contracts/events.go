package contracts

type UserRegisteredEvent struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type PasswordResetRequestedEvent struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type DocumentUploadedEvent struct {
	UserID   string `json:"userId"`
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	Email    string `json:"email"`
}
