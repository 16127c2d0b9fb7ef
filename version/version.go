package version

// Version represents the Major.Minor.Patch version tag
// from GIT, supplied by the Makefile - else 'dev' as a
// default
var Version string = "dev"

// Commit is the GIT commit the binary was built from, if known
var Commit string = ""
