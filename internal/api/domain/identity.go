package domain

// Identity is an external identity taken from a verified provider token.
// Email is normalized and may be empty (access tokens carry none).
type Identity struct {
	Sub           string
	Email         string
	EmailVerified bool
}
