package model

// ShortenString elides the middle of long identifiers: inputs of up to 12
// bytes are returned unchanged, longer ones keep 8 bytes on each side.
func ShortenString(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:8] + " ... " + s[len(s)-8:]
}
