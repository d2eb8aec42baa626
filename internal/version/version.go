package version

// Version is the current version of copypg.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "1.2.0"

// Name is the application name.
const Name = "copypg"

// Description is a short description of the application.
const Description = "Seed a local PostgreSQL database from production data"
