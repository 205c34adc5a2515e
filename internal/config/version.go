package config

// Version is the txlink binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/txlink/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
