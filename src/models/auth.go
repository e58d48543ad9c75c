package models

// AuthResult is the uniform outcome of every sign-in/sign-up/sign-out call.
type AuthResult struct {
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

type UserInfo struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	AuthProvider string `json:"authProvider"`
}
