package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMode_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ASSOC", FetchAssoc.String())
	assert.Equal(t, "COLUMN", FetchColumn.String())
	assert.Equal(t, "CLASS", FetchClass.String())
	assert.Equal(t, "FetchMode(42)", FetchMode(42).String())
}

func TestFetchSpecFromOptions_Default(t *testing.T) {
	t.Parallel()
	spec, err := fetchSpecFromOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFetchSpec(), spec)

	spec, err = fetchSpecFromOptions(DriverOptions{"unrelated": 1})
	require.NoError(t, err)
	assert.Equal(t, FetchAssoc, spec.Mode)
}

func TestFetchSpecFromOptions_Column(t *testing.T) {
	t.Parallel()
	_, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchColumn})
	var illegal *IllegalArgumentError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, OptionColNo, illegal.Option)
	assert.ErrorIs(t, err, ErrIllegalArgument)

	_, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchColumn, OptionColNo: -1})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	_, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchColumn, OptionColNo: "1"})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	spec, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchColumn, OptionColNo: int64(2)})
	require.NoError(t, err)
	assert.Equal(t, FetchSpec{Mode: FetchColumn, Column: 2}, spec)
}

func TestFetchSpecFromOptions_Into(t *testing.T) {
	t.Parallel()
	_, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchInto})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	_, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchInto, OptionObject: fakeUser{}})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	var nilUser *fakeUser
	_, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchInto, OptionObject: nilUser})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	u := &fakeUser{}
	spec, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchInto, OptionObject: u})
	require.NoError(t, err)
	assert.Same(t, u, spec.Into)
}

func TestFetchSpecFromOptions_Class(t *testing.T) {
	t.Parallel()
	RegisterClass("fetch_test.user", func(...any) any { return &fakeUser{} })

	_, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchClass})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	_, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchClass, OptionClassName: "fetch_test.missing"})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	_, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchClass, OptionClassName: 7})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	spec, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchClass, OptionClassName: "fetch_test.user"})
	require.NoError(t, err)
	assert.Equal(t, FetchClass, spec.Mode)
	assert.Equal(t, []any{}, spec.CtorArgs, "ctorargs defaults to no arguments")
	assert.IsType(t, &fakeUser{}, spec.Class())

	_, err = fetchSpecFromOptions(DriverOptions{
		OptionFetchMode: FetchClass,
		OptionClassName: "fetch_test.user",
		OptionCtorArgs:  "x",
	})
	assert.ErrorIs(t, err, ErrIllegalArgument)

	ctor := Constructor(func(args ...any) any { return &fakeUser{Tag: args[0].(string)} })
	spec, err = fetchSpecFromOptions(DriverOptions{
		OptionFetchMode: FetchClass,
		OptionClassName: ctor,
		OptionCtorArgs:  []any{"vip"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"vip"}, spec.CtorArgs)
}

func TestFetchSpecFromOptions_OtherModesPassThrough(t *testing.T) {
	t.Parallel()
	spec, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchNum})
	require.NoError(t, err)
	assert.Equal(t, FetchSpec{Mode: FetchNum}, spec)

	spec, err = fetchSpecFromOptions(DriverOptions{OptionFetchMode: FetchMode(99)})
	require.NoError(t, err)
	assert.Equal(t, FetchMode(99), spec.Mode)
}

func TestFetchSpecFromOptions_WrongModeType(t *testing.T) {
	t.Parallel()
	_, err := fetchSpecFromOptions(DriverOptions{OptionFetchMode: "COLUMN"})
	var illegal *IllegalArgumentError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, OptionFetchMode, illegal.Option)
}

func TestRegisterClass(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { RegisterClass("nil", nil) })

	RegisterClass("fetch_test.replace", func(...any) any { return 1 })
	RegisterClass("fetch_test.replace", func(...any) any { return 2 })
	ctor, ok := LookupClass("fetch_test.replace")
	require.True(t, ok)
	assert.Equal(t, 2, ctor())

	_, ok = LookupClass("fetch_test.never")
	assert.False(t, ok)
}
