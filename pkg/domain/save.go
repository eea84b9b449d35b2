package domain

// VarType discriminates the concrete var kind inside a save game.
type VarType string

const (
	VarTypeInt    VarType = "int"
	VarTypeDouble VarType = "double"
	VarTypeBool   VarType = "bool"
	VarTypeString VarType = "string"
)

// VarInfo is the portable record of one var.
// Parameters carries the constraints needed to rebuild the exact kind:
// [min, max] for int and double, [max_length] for string, nothing for bool.
type VarInfo struct {
	Type         VarType `json:"type"`
	Key          string  `json:"key"`
	NameAssetKey string  `json:"name_asset_key"`
	Value        any     `json:"value"`
	Parameters   []any   `json:"parameters,omitempty"`
}

// SaveGame is the snapshot produced by SaveGame and consumed by LoadGame.
// VarsInfo never includes the user name var.
type SaveGame struct {
	UserName        string    `json:"user_name"`
	CurrentStateKey string    `json:"current_state_key"`
	VarsInfo        []VarInfo `json:"vars_info"`
}
