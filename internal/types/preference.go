package types

// Verbosity controls how much metadata a renderer shows with an instruction.
type Verbosity string

const (
	VerbosityMinimal Verbosity = "minimal"
	VerbosityNormal  Verbosity = "normal"
	VerbosityVerbose Verbosity = "verbose"
)

// DefaultVerbosity applies when no preference is stored.
const DefaultVerbosity = VerbosityNormal

// IsValid reports whether v is a known verbosity.
func (v Verbosity) IsValid() bool {
	switch v {
	case VerbosityMinimal, VerbosityNormal, VerbosityVerbose:
		return true
	}
	return false
}

// PreferenceVerbosity is the global verbosity preference key.
const PreferenceVerbosity = "instruction_verbosity"

// VerbosityKey returns the preference key for name, or the global key
// when name is empty.
func VerbosityKey(name string) string {
	if name == "" {
		return PreferenceVerbosity
	}
	return PreferenceVerbosity + "_" + name
}

// VerbosityPreference is the resolved verbosity for a user and
// optionally one instruction.
type VerbosityPreference struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Verbosity Verbosity `json:"verbosity" validate:"verbosity"`
	// Source is the key the value was read from, or "default".
	Source string `json:"source"`
}

// Validate checks the verbosity value.
func (p *VerbosityPreference) Validate() error {
	return toValidationError(instructionValidate.Struct(p))
}
