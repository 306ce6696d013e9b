package security

import "golang.org/x/crypto/bcrypt"

const bcryptCost = 10

// HashPassword returns the bcrypt hash stored as the user's credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the submitted secret matches the stored hash.
func CheckPassword(secret, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret)) == nil
}
