package translate

import "unicode"

// ContainsChinese reports whether s contains at least one Han character.
func ContainsChinese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
