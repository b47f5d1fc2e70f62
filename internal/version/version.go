package version

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/r0man1an/LibreFlash/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/r0man1an/LibreFlash/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/r0man1an/LibreFlash/internal/version.Date={{.Date}}
)
