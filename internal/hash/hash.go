package hash

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor. Fixed so digests stay interchangeable
// across deployments.
const Cost = 10

func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

func CheckPassword(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
