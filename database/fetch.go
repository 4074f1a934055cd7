package database

import (
	"fmt"
	"reflect"
	"sync"
)

// FetchMode controls how QueryResult materializes rows.
type FetchMode int

const (
	// FetchAssoc returns each row as map[string]any keyed by column name.
	FetchAssoc FetchMode = iota + 1

	// FetchNum returns each row as []any in column order.
	FetchNum

	// FetchColumn returns a single column of each row.
	FetchColumn

	// FetchInto scans each row into one caller-supplied struct pointer.
	FetchInto

	// FetchClass builds a new object per row through a Constructor and scans into it.
	FetchClass
)

func (m FetchMode) String() string {
	switch m {
	case FetchAssoc:
		return "ASSOC"
	case FetchNum:
		return "NUM"
	case FetchColumn:
		return "COLUMN"
	case FetchInto:
		return "INTO"
	case FetchClass:
		return "CLASS"
	default:
		return fmt.Sprintf("FetchMode(%d)", int(m))
	}
}

// Driver option keys recognized by Prepare and Query.
const (
	OptionFetchMode = "fetchMode"
	OptionColNo     = "colNo"
	OptionObject    = "object"
	OptionClassName = "classname"
	OptionCtorArgs  = "ctorargs"
)

// DriverOptions are driver-specific key/value pairs. Configurations use them for
// connection parameters, Prepare and Query for fetch behavior.
type DriverOptions map[string]any

// Constructor builds the object a FetchClass row is scanned into. It must return a
// pointer to a struct.
type Constructor func(args ...any) any

// FetchSpec is a fetch mode together with the argument that mode needs.
type FetchSpec struct {
	Mode FetchMode

	// Column is the zero-based column index for FetchColumn.
	Column int

	// Into is the struct pointer rows are scanned into for FetchInto.
	Into any

	// Class and CtorArgs build one object per row for FetchClass.
	Class    Constructor
	CtorArgs []any
}

// DefaultFetchSpec fetches rows as maps.
func DefaultFetchSpec() FetchSpec {
	return FetchSpec{Mode: FetchAssoc}
}

// fetchSpecFromOptions validates the fetch-related driver options. Modes other than
// COLUMN, INTO and CLASS are taken as-is without an argument.
func fetchSpecFromOptions(opts DriverOptions) (FetchSpec, error) {
	raw, ok := opts[OptionFetchMode]
	if !ok {
		return DefaultFetchSpec(), nil
	}
	mode, ok := raw.(FetchMode)
	if !ok {
		return FetchSpec{}, &IllegalArgumentError{
			Option: OptionFetchMode,
			Reason: fmt.Sprintf("must be a FetchMode, got %T", raw),
		}
	}

	switch mode {
	case FetchColumn:
		v, ok := opts[OptionColNo]
		if !ok {
			return FetchSpec{}, &IllegalArgumentError{Mode: mode, Option: OptionColNo, Reason: "is required"}
		}
		col, ok := toInt(v)
		if !ok || col < 0 {
			return FetchSpec{}, &IllegalArgumentError{Mode: mode, Option: OptionColNo, Reason: "must be a non-negative integer"}
		}
		return FetchSpec{Mode: mode, Column: col}, nil

	case FetchInto:
		obj, ok := opts[OptionObject]
		if !ok || obj == nil {
			return FetchSpec{}, &IllegalArgumentError{Mode: mode, Option: OptionObject, Reason: "is required"}
		}
		if rv := reflect.ValueOf(obj); rv.Kind() != reflect.Pointer || rv.IsNil() {
			return FetchSpec{}, &IllegalArgumentError{Mode: mode, Option: OptionObject, Reason: "must be a non-nil pointer"}
		}
		return FetchSpec{Mode: mode, Into: obj}, nil

	case FetchClass:
		v, ok := opts[OptionClassName]
		if !ok || v == nil {
			return FetchSpec{}, &IllegalArgumentError{Mode: mode, Option: OptionClassName, Reason: "is required"}
		}
		ctor, err := resolveClass(mode, v)
		if err != nil {
			return FetchSpec{}, err
		}
		args := []any{}
		if raw, ok := opts[OptionCtorArgs]; ok && raw != nil {
			list, ok := raw.([]any)
			if !ok {
				return FetchSpec{}, &IllegalArgumentError{Mode: mode, Option: OptionCtorArgs, Reason: "must be a []any"}
			}
			args = list
		}
		return FetchSpec{Mode: mode, Class: ctor, CtorArgs: args}, nil

	default:
		return FetchSpec{Mode: mode}, nil
	}
}

func resolveClass(mode FetchMode, v any) (Constructor, error) {
	switch c := v.(type) {
	case Constructor:
		return c, nil
	case func(args ...any) any:
		return c, nil
	case string:
		ctor, ok := LookupClass(c)
		if !ok {
			return nil, &IllegalArgumentError{Mode: mode, Option: OptionClassName, Reason: fmt.Sprintf("names unregistered class %q", c)}
		}
		return ctor, nil
	default:
		return nil, &IllegalArgumentError{Mode: mode, Option: OptionClassName, Reason: fmt.Sprintf("must be a class name or Constructor, got %T", v)}
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	default:
		return 0, false
	}
}

var (
	classesMu sync.RWMutex
	classes   = make(map[string]Constructor)
)

// RegisterClass makes a constructor available to FetchClass under name. Registering
// the same name twice replaces the earlier constructor.
func RegisterClass(name string, ctor Constructor) {
	if ctor == nil {
		panic("database: RegisterClass constructor is nil")
	}
	classesMu.Lock()
	defer classesMu.Unlock()
	classes[name] = ctor
}

// LookupClass returns the constructor registered under name.
func LookupClass(name string) (Constructor, bool) {
	classesMu.RLock()
	defer classesMu.RUnlock()
	ctor, ok := classes[name]
	return ctor, ok
}
