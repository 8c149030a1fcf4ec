package resolver

// TokenLength is the length of a base-36 encoded SHA-256 hash.
const TokenLength = 51

// IsToken returns true if label is exactly TokenLength characters of [0-9a-z]. Callers
// lower-case the label first; upper-case letters are not tokens.
func IsToken(label string) bool {
	if len(label) != TokenLength {
		return false
	}
	for ix := 0; ix < len(label); ix++ {
		c := label[ix]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}

	return true
}
