package models

// JSON and form bodies accepted by the admin API.

type StatusRequest struct {
	Status string `json:"status" form:"status"`
}

type SeverityRequest struct {
	Severity string `json:"severity" form:"severity"`
}

type BulkStatusRequest struct {
	IDs    []int64 `json:"ids" form:"ids"`
	Status string  `json:"status" form:"status"`
}

type NewsRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type PasswordRequest struct {
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type SettingsRequest struct {
	DisplayName        string `json:"display_name" form:"display_name"`
	Email              string `json:"email" form:"email"`
	DarkMode           bool   `json:"dark_mode" form:"dark_mode"`
	EmailNotifications bool   `json:"email_notifications" form:"email_notifications"`
}
