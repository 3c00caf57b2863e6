package audioremoted

// Version is the daemon release version, overridden at build time via
// -ldflags "-X github.com/audioremote/audioremoted.Version=...".
var Version = "0.0.0-dev"
