package application

// ValidatePassword checks the complexity policy: at least 8 characters with
// at least one ASCII uppercase letter, one lowercase letter, and one digit.
// No upper bound on length. Pure; runs before any hashing or repository work
// on every credential-setting path.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordPolicy
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	if hasUpper && hasLower && hasDigit {
		return nil
	}
	return ErrPasswordPolicy
}
