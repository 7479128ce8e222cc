package version

// Version is the current version of the dialog analyzer
const Version = "0.1.0"

// UserAgent returns the User-Agent string for HTTP requests
func UserAgent() string {
	return "dialog-analyzer/" + Version
}
