// Package version holds the release version reported by the commands.
package version

// Current is the release version, without a leading "v".
const Current = "0.3.0"

// UserAgent returns the User-Agent sent to completion providers.
func UserAgent() string {
	return "call-analyzer/" + Current
}
