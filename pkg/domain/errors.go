package domain

import "errors"

// State machine errors.
var (
	// ErrStateNotFound is returned when a state asset cannot be read.
	ErrStateNotFound = errors.New("state not found")

	// ErrBadState is returned when a state asset is readable but malformed.
	ErrBadState = errors.New("bad state")

	// ErrTransitionNotFound is returned when zero or more than one transition
	// of the current state matches the requested key.
	ErrTransitionNotFound = errors.New("transition not found")

	// ErrNoCurrentState is returned when a transition is applied before any state was set.
	ErrNoCurrentState = errors.New("current state is not set")
)

// Script host errors.
var (
	// ErrEmptyScriptName is returned when a script is created without a name.
	ErrEmptyScriptName = errors.New("script name cannot be empty")

	// ErrScriptCompile is returned when script source fails to compile.
	ErrScriptCompile = errors.New("script compile error")

	// ErrUnexpectedScriptContextType is returned when a script is run with a context
	// shape other than the one it was created for. It always signals a wiring bug.
	ErrUnexpectedScriptContextType = errors.New("unexpected script context type")

	// ErrRuntimeScript is matched by every RuntimeScriptError.
	ErrRuntimeScript = errors.New("exception executing script")

	// ErrServiceAccessDenied is returned when a script asks for a capability that is
	// not marked as script-accessible.
	ErrServiceAccessDenied = errors.New("service access denied")

	// ErrServiceNotFound is returned when a capability name is not registered at all.
	ErrServiceNotFound = errors.New("service not found")

	// ErrResolverReleased is returned when a resolver is used after its run finished.
	ErrResolverReleased = errors.New("resolver already released")
)

// Asset errors.
var (
	// ErrAssetNotFound is returned when no descriptor or data exists for a key.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidAssetType is returned when a descriptor exists but has another type.
	ErrInvalidAssetType = errors.New("invalid asset type")
)

// Vars errors.
var (
	ErrVarNotFound      = errors.New("var not found")
	ErrVarAlreadyExists = errors.New("var already exists")
	ErrVarTypeMismatch  = errors.New("var type mismatch")
	ErrVarOutOfRange    = errors.New("var value out of range")
)

// Game control and persistence errors.
var (
	// ErrBadUserName is returned when StartGame receives a name outside [a-zA-Z0-9.-_].
	ErrBadUserName = errors.New("bad user name")

	// ErrBadSaveGame is returned when save data cannot be decoded.
	ErrBadSaveGame = errors.New("bad save game")

	// ErrSaveNotFound is returned when a save slot cannot be found in the store.
	ErrSaveNotFound = errors.New("save not found")

	// ErrInvalidLocale is returned when a locale tag cannot be parsed.
	ErrInvalidLocale = errors.New("invalid locale")
)

// RuntimeScriptError wraps a fault raised while a script was executing.
type RuntimeScriptError struct {
	Script string
	Err    error
}

func (e *RuntimeScriptError) Error() string {
	return "exception executing script " + e.Script + ": " + e.Err.Error()
}

func (e *RuntimeScriptError) Unwrap() error {
	return e.Err
}

// Is reports ErrRuntimeScript so callers can match the category without a type assertion.
func (e *RuntimeScriptError) Is(target error) bool {
	return target == ErrRuntimeScript
}

// AssetTypeError reports a descriptor whose type differs from the requested one.
type AssetTypeError struct {
	Key      string
	Expected AssetType
	Actual   AssetType
}

func (e *AssetTypeError) Error() string {
	return "asset " + e.Key + " is " + string(e.Actual) + ", expected " + string(e.Expected)
}

func (e *AssetTypeError) Is(target error) bool {
	return target == ErrInvalidAssetType
}
