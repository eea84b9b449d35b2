package vars

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/aretw0/fable/pkg/domain"
)

// nullDisplay is rendered for vars without a value.
const nullDisplay = "null"

// Var is a named, typed value.
// The zero value of the payload is "unset", which renders as "null".
type Var struct {
	Key          string
	NameAssetKey string
	Type         domain.VarType

	// SetIndex is assigned by the Manager when the var is added.
	SetIndex uint

	value any

	// Min and Max bound int and double vars.
	Min, Max *float64
	// MaxLength bounds string vars, counted in runes.
	MaxLength *int
}

// Option configures a Var at construction time.
type Option func(*Var)

// WithValue sets the initial value. It is validated by Validate and Manager.AddVar.
func WithValue(v any) Option {
	return func(x *Var) {
		x.value = v
	}
}

// WithRange bounds a numeric var.
func WithRange(min, max float64) Option {
	return func(x *Var) {
		x.Min = &min
		x.Max = &max
	}
}

// WithMin sets only the lower bound of a numeric var.
func WithMin(min float64) Option {
	return func(x *Var) {
		x.Min = &min
	}
}

// WithMax sets only the upper bound of a numeric var.
func WithMax(max float64) Option {
	return func(x *Var) {
		x.Max = &max
	}
}

// WithMaxLength bounds a string var.
func WithMaxLength(n int) Option {
	return func(x *Var) {
		x.MaxLength = &n
	}
}

func newVar(t domain.VarType, key, nameAssetKey string, opts []Option) *Var {
	v := &Var{Key: key, NameAssetKey: nameAssetKey, Type: t}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Int creates an integer var.
func Int(key, nameAssetKey string, opts ...Option) *Var {
	return newVar(domain.VarTypeInt, key, nameAssetKey, opts)
}

// Double creates a floating point var.
func Double(key, nameAssetKey string, opts ...Option) *Var {
	return newVar(domain.VarTypeDouble, key, nameAssetKey, opts)
}

// Bool creates a boolean var.
func Bool(key, nameAssetKey string, opts ...Option) *Var {
	return newVar(domain.VarTypeBool, key, nameAssetKey, opts)
}

// String creates a string var.
func String(key, nameAssetKey string, opts ...Option) *Var {
	return newVar(domain.VarTypeString, key, nameAssetKey, opts)
}

// Value returns the current payload: int, float64, bool, string or nil.
func (v *Var) Value() any {
	return v.value
}

// IsSet reports whether the var holds a value.
func (v *Var) IsSet() bool {
	return v.value != nil
}

// Set validates and stores a new value. A nil value clears the var.
func (v *Var) Set(value any) error {
	normalized, err := v.normalize(value)
	if err != nil {
		return err
	}
	v.value = normalized
	return nil
}

// Validate checks the current value against the var's type and constraints.
func (v *Var) Validate() error {
	normalized, err := v.normalize(v.value)
	if err != nil {
		return err
	}
	v.value = normalized
	return nil
}

func (v *Var) normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v.Type {
	case domain.VarTypeInt:
		n, ok := toInt(value)
		if !ok {
			return nil, v.mismatch(value)
		}
		if err := v.checkRange(float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case domain.VarTypeDouble:
		f, ok := toFloat(value)
		if !ok {
			return nil, v.mismatch(value)
		}
		if err := v.checkRange(f); err != nil {
			return nil, err
		}
		return f, nil
	case domain.VarTypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, v.mismatch(value)
		}
		return b, nil
	case domain.VarTypeString:
		s, ok := value.(string)
		if !ok {
			return nil, v.mismatch(value)
		}
		if v.MaxLength != nil && utf8.RuneCountInString(s) > *v.MaxLength {
			return nil, fmt.Errorf("%w: %s longer than %d", domain.ErrVarOutOfRange, v.Key, *v.MaxLength)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %q", domain.ErrVarTypeMismatch, v.Key, v.Type)
	}
}

func (v *Var) mismatch(value any) error {
	return fmt.Errorf("%w: %s is %s, got %T", domain.ErrVarTypeMismatch, v.Key, v.Type, value)
}

func (v *Var) checkRange(f float64) error {
	if v.Min != nil && f < *v.Min {
		return fmt.Errorf("%w: %s below %v", domain.ErrVarOutOfRange, v.Key, *v.Min)
	}
	if v.Max != nil && f > *v.Max {
		return fmt.Errorf("%w: %s above %v", domain.ErrVarOutOfRange, v.Key, *v.Max)
	}
	return nil
}

// DisplayString renders the value for text substitution.
func (v *Var) DisplayString() string {
	switch val := v.value.(type) {
	case nil:
		return nullDisplay
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// Clone returns an independent copy of the var.
func (v *Var) Clone() *Var {
	c := *v
	if v.Min != nil {
		m := *v.Min
		c.Min = &m
	}
	if v.Max != nil {
		m := *v.Max
		c.Max = &m
	}
	if v.MaxLength != nil {
		m := *v.MaxLength
		c.MaxLength = &m
	}
	return &c
}

// Info converts the var into its save-game record.
func (v *Var) Info() domain.VarInfo {
	info := domain.VarInfo{
		Type:         v.Type,
		Key:          v.Key,
		NameAssetKey: v.NameAssetKey,
		Value:        v.value,
	}

	switch v.Type {
	case domain.VarTypeInt:
		info.Parameters = []any{intBound(v.Min), intBound(v.Max)}
	case domain.VarTypeDouble:
		info.Parameters = []any{floatBound(v.Min), floatBound(v.Max)}
	case domain.VarTypeString:
		var maxLength any
		if v.MaxLength != nil {
			maxLength = *v.MaxLength
		}
		info.Parameters = []any{maxLength}
	}
	return info
}

// FromInfo rebuilds a var from its save-game record.
// Numbers may arrive as float64 or json.Number after JSON decoding.
func FromInfo(info domain.VarInfo) (*Var, error) {
	var v *Var
	switch info.Type {
	case domain.VarTypeInt, domain.VarTypeDouble:
		v = &Var{Key: info.Key, NameAssetKey: info.NameAssetKey, Type: info.Type}
		if len(info.Parameters) > 0 {
			v.Min = optFloat(info.Parameters[0])
		}
		if len(info.Parameters) > 1 {
			v.Max = optFloat(info.Parameters[1])
		}
	case domain.VarTypeBool:
		v = Bool(info.Key, info.NameAssetKey)
	case domain.VarTypeString:
		v = String(info.Key, info.NameAssetKey)
		if len(info.Parameters) > 0 {
			if n, ok := toInt(info.Parameters[0]); ok {
				v.MaxLength = &n
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported var type %q", domain.ErrVarTypeMismatch, info.Type)
	}

	if err := v.Set(info.Value); err != nil {
		return nil, err
	}
	return v, nil
}

func intBound(b *float64) any {
	if b == nil {
		return nil
	}
	return int(*b)
}

func floatBound(b *float64) any {
	if b == nil {
		return nil
	}
	return *b
}

func optFloat(value any) *float64 {
	f, ok := toFloat(value)
	if !ok {
		return nil
	}
	return &f
}

func toInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
