package helpers

// Truncate shortens s to at most n bytes, used for raw-content excerpts.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
