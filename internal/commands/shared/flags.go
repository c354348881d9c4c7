package shared

// Global flag values, bound by the root command.
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool

	// Build-time version information, injected via ldflags.
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to the global flag variables so the
// root command can bind them.
func RegisterFlagPointers() (*bool, *bool, *bool) {
	return &verboseFlag, &quietFlag, &jsonFlag
}

// SetVersion records the build-time version information (called from main).
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value.
func GetVerbose() bool { return verboseFlag }

// GetQuiet returns the quiet flag value.
func GetQuiet() bool { return quietFlag }

// GetJSON returns the JSON output flag value.
func GetJSON() bool { return jsonFlag }

// GetVersion returns the recorded version information.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}
