// internal/version/version.go
package version

// Version is the release tag stamped into -version output.
const Version = "0.3.0"
