package version

// Version is set at build time with -ldflags "-X github.com/bnema/boxtoplay-keeper/internal/version.Version=...".
var Version = "dev"
