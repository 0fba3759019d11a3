package util

import "crypto/rand"

const letterBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomString returns n characters from [a-z0-9].
func GenerateRandomString(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = letterBytes[b[i]%byte(len(letterBytes))]
	}
	return string(b)
}
