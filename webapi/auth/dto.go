package auth

// LoginInput represents the request body for account holder authentication.
type LoginInput struct {
	Number string `json:"number" validate:"required"`
	PIN    string `json:"pin" validate:"required"`
}
