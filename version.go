package stagegate

// Version is the release of the module, overridden at build time with
// -ldflags "-X github.com/aretw0/stagegate.Version=...".
var Version = "0.4.0-dev"
