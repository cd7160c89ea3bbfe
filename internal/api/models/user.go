package models

// User represents a user in the database.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// RegisterRequest defines the structure for a user registration request.
// The same struct is bound from JSON bodies and from HTML forms.
type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required"`
	Password        string `json:"password" form:"password" validate:"min=6,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"eqfield=Password"`
}

// LoginRequest defines the structure for a user login request.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse is returned by the JSON API after a successful login.
type LoginResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}
