// Package random generates unguessable identifiers from crypto/rand.
package random

import (
	"crypto/rand"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// 62*4 = 248: bytes at or above it are rejected so every symbol is equally likely.
const maxUnbiased = 256 - 256%len(alphabet)

// Seq returns n random alphanumeric characters. It panics if crypto/rand fails.
func Seq(n int) string {
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
