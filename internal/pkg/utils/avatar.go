package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultAvatarSize = 200

// FallbackAvatarURL returns the Gravatar image for email, or "" when email is
// empty. Gravatar serves its "mystery person" image for unknown addresses.
func FallbackAvatarURL(email string, size int) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if size <= 0 {
		size = defaultAvatarSize
	}

	hash := md5.Sum([]byte(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
