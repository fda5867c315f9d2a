package settings

import (
	"reflect"
)

// Resetter produces fresh instances carrying declared defaults and re-applies
// defaults to existing instances.
type Resetter struct{}

// NewResetter constructs a Resetter.
func NewResetter() *Resetter {
	return &Resetter{}
}

// NewInstance constructs a zero instance of the class, assigns `default` tag
// values, then gives the class's own Resettable capability the last word.
func (r *Resetter) NewInstance(md *Metadata) (any, error) {
	ptr := reflect.New(md.goType)
	if err := applyDefaults(ptr.Elem(), md, false); err != nil {
		return nil, err
	}
	if resettable, ok := ptr.Interface().(Resettable); ok {
		resettable.ResetToDefaults()
	}
	return ptr.Interface(), nil
}

// Reset re-applies defaults to instance in place. Parameters without a
// declared default return to their zero value. Embedded settings fields are
// left untouched: reset never cascades by itself, cascading belongs to the
// manager.
func (r *Resetter) Reset(instance any, md *Metadata) error {
	rv, err := instanceValue(instance, md)
	if err != nil {
		return err
	}
	if err := applyDefaults(rv, md, true); err != nil {
		return err
	}
	if resettable, ok := instance.(Resettable); ok {
		resettable.ResetToDefaults()
	}
	return nil
}

func applyDefaults(rv reflect.Value, md *Metadata, zeroMissing bool) error {
	for _, p := range md.params {
		field := rv.FieldByIndex(p.fieldIndex)
		if !p.HasDefault {
			if zeroMissing {
				field.Set(reflect.Zero(field.Type()))
			}
			continue
		}
		if err := assignNative(field, p.Default); err != nil {
			return &ConversionError{Class: md.className, Parameter: p.Name, Type: p.TypeName, Value: p.Default, Err: err}
		}
	}
	return nil
}
