package common

// WipeByteArray zeroes b. It is used to drop passwords from memory once a
// request has been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
