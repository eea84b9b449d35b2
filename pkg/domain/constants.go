package domain

// Defaults used when a host does not configure the engine explicitly.
const (
	// DefaultInitialStateKey is the state entered by StartGame.
	DefaultInitialStateKey = "common.state.initial"
	// DefaultFinalStateKey is the state entered by ExitGame.
	DefaultFinalStateKey = "common.state.final"

	// DefaultLocale is the fallback locale used when a localized asset is missing.
	DefaultLocale = "default"

	// UserNameVarKey holds the player's name inside the vars set.
	UserNameVarKey = "common.userName"
	// UserNameVarNameAssetKey is the text asset naming the user name var.
	UserNameVarNameAssetKey = "common.vars.userName"
)
