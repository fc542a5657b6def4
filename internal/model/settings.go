package model

type EmailSettings struct {
	Enabled  bool   `json:"enabled"`
	Email    string `json:"email"`
	AuthCode string `json:"authCode,omitempty"`
	// To overrides the recipient; empty sends the summary to Email itself.
	To string `json:"to,omitempty"`
}
