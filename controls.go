package pixtone

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Control represents an editable parameter of a filter or pipeline step.
// When Value is modified via OnChange, the owner picks up the new value immediately.
type Control interface {
	// Display/human readable name and description.
	Describe() (name, description string)
	// ActualValue returns the current value of the control.
	ActualValue() any
	// ChangeValue attempts to update the ActualValue to newValue.
	// Values outside the control's domain fail with [ErrInvalidParameter].
	ChangeValue(newValue any) error
}

// TextControl is implemented by controls that accept user typed input,
// as entered on the menu prompt or posted from the dashboard form.
type TextControl interface {
	Control
	// SetText parses s and applies it with ChangeValue.
	// Blank input restores the control's default.
	SetText(s string) error
}

type ControlOrdered[T cmp.Ordered] struct {
	Name        string
	Description string
	Value       T
	Default     T
	Min         T
	Max         T
	Step        T
	OnChange    func(T) error
}

func (co *ControlOrdered[T]) Describe() (name, description string) {
	return co.Name, co.Description
}
func (co *ControlOrdered[T]) ActualValue() any { return co.Value }
func (co *ControlOrdered[T]) ChangeValue(newValue any) error {
	v, ok := newValue.(T)
	if !ok {
		return Errorf(ErrInvalidParameter, co.Name, "new value %T not of type %T", newValue, co.Value)
	}
	if v != v {
		return Errorf(ErrInvalidParameter, co.Name, "new value is NaN")
	}
	if v < co.Min || v > co.Max {
		return Errorf(ErrInvalidParameter, co.Name, "new value %v outside control range %v..%v", v, co.Min, co.Max)
	}
	if co.OnChange != nil {
		if err := co.OnChange(v); err != nil {
			return WrapError(ErrInvalidParameter, co.Name, err)
		}
	}
	co.Value = v
	return nil
}

func (co *ControlOrdered[T]) SetText(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return co.ChangeValue(co.Default)
	}
	var parsed any
	var err error
	switch any(co.Value).(type) {
	case float64:
		parsed, err = strconv.ParseFloat(s, 64)
	case float32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		parsed = float32(f)
	case int:
		parsed, err = strconv.Atoi(s)
	case string:
		parsed = s
	default:
		return Errorf(ErrInvalidParameter, co.Name, "text input unsupported for %T", co.Value)
	}
	if err != nil {
		return Errorf(ErrInvalidParameter, co.Name, "%q is not a number", s)
	}
	return co.ChangeValue(parsed)
}

type integer interface {
	~int | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

// enum best generated with stringer commands.
type enum interface {
	integer
	fmt.Stringer
}

// ControlEnum maps to dropdown kind of list.
type ControlEnum[T enum] struct {
	Name        string
	Description string
	Value       T
	ValidValues []T
	OnChange    func(T) error
}

func (ce *ControlEnum[T]) Describe() (name, description string) {
	return ce.Name, ce.Description
}
func (ce *ControlEnum[T]) ActualValue() any {
	return ce.Value
}
func (ce *ControlEnum[T]) ChangeValue(newValue any) error {
	v, ok := newValue.(T)
	if !ok {
		return Errorf(ErrInvalidParameter, ce.Name, "new value %T not of type %T", newValue, ce.Value)
	}
	if !slices.Contains(ce.ValidValues, v) {
		return Errorf(ErrInvalidParameter, ce.Name, "value %v of %T not valid", v, v)
	}
	if ce.OnChange != nil {
		if err := ce.OnChange(v); err != nil {
			return WrapError(ErrInvalidParameter, ce.Name, err)
		}
	}
	ce.Value = v
	return nil
}

// SetText selects the valid value whose String matches s, ignoring case.
// Blank input selects the first valid value.
func (ce *ControlEnum[T]) SetText(s string) error {
	s = strings.TrimSpace(s)
	if len(ce.ValidValues) == 0 {
		return Errorf(ErrInvalidParameter, ce.Name, "no valid values")
	}
	if s == "" {
		return ce.ChangeValue(ce.ValidValues[0])
	}
	for _, v := range ce.ValidValues {
		if strings.EqualFold(v.String(), s) {
			return ce.ChangeValue(v)
		}
	}
	return Errorf(ErrInvalidParameter, ce.Name, "%q is not one of %v", s, ce.ValidValues)
}

// Options returns the display names of the valid values in order.
func (ce *ControlEnum[T]) Options() []string {
	names := make([]string, len(ce.ValidValues))
	for i, v := range ce.ValidValues {
		names[i] = v.String()
	}
	return names
}
