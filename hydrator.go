package settings

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-settings/pkg/storage"
)

// Hydrator moves parameter values between live instances and a storage
// adapter, converting through each parameter's type adapter and applying env
// overrides according to the parameter's mode.
type Hydrator struct {
	env EnvResolver
}

// NewHydrator constructs a Hydrator using env for override resolution. A nil
// resolver disables env bindings entirely.
func NewHydrator(env EnvResolver) *Hydrator {
	return &Hydrator{env: env}
}

// Hydrate assigns every parameter of md onto instance from adapter.
// Parameters absent from storage (and not supplied by the environment) keep
// whatever value the instance already holds, normally the declared default.
func (h *Hydrator) Hydrate(ctx context.Context, adapter storage.Adapter, instance any, md *Metadata) error {
	rv, err := instanceValue(instance, md)
	if err != nil {
		return err
	}
	for _, p := range md.params {
		norm, ok, err := adapter.Read(ctx, md.className, p.Name)
		if err != nil {
			return fmt.Errorf("settings: read %s.%s: %w", md.className, p.Name, err)
		}
		norm, ok, err = h.applyEnv(p, norm, ok)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := setParameter(rv, p, norm); err != nil {
			return err
		}
	}
	return nil
}

// applyEnv resolves the env override for p. INITIAL applies only when storage
// holds no value; the overwrite modes shadow storage whenever the variable is
// set.
func (h *Hydrator) applyEnv(p *ParameterSchema, norm any, ok bool) (any, bool, error) {
	if p.EnvVar == "" || h.env == nil {
		return norm, ok, nil
	}
	switch p.EnvMode {
	case EnvVarInitial:
		if ok || !h.env.Has(p) {
			return norm, ok, nil
		}
	case EnvVarOverwrite, EnvVarOverwritePersist:
		if !h.env.Has(p) {
			return norm, ok, nil
		}
	default:
		return norm, ok, nil
	}
	resolved, err := h.env.Resolve(p)
	if err != nil {
		return nil, false, err
	}
	return resolved, true, nil
}

// Persist writes every parameter of md from instance to adapter. A parameter
// bound in OVERWRITE mode whose variable is currently set is skipped: the
// env-derived value must not leak into storage. OVERWRITE_PERSIST persists
// the override by design of that mode.
func (h *Hydrator) Persist(ctx context.Context, adapter storage.Adapter, instance any, md *Metadata) error {
	rv, err := instanceValue(instance, md)
	if err != nil {
		return err
	}
	for _, p := range md.params {
		if p.EnvMode == EnvVarOverwrite && h.env != nil && h.env.Has(p) {
			continue
		}
		field := rv.FieldByIndex(p.fieldIndex)
		native, isNil := nativeOf(field, p)
		var norm any
		if isNil {
			if !p.Nullable {
				return &ConversionError{Class: md.className, Parameter: p.Name, Type: p.TypeName,
					Err: fmt.Errorf("nil value for non-nullable parameter")}
			}
		} else {
			norm, err = p.Type.ToNormalized(native, p)
			if err != nil {
				return &ConversionError{Class: md.className, Parameter: p.Name, Type: p.TypeName, Value: native, Err: err}
			}
		}
		if err := adapter.Write(ctx, md.className, p.Name, norm); err != nil {
			return fmt.Errorf("settings: write %s.%s: %w", md.className, p.Name, err)
		}
	}
	return nil
}

func instanceValue(instance any, md *Metadata) (reflect.Value, error) {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != md.goType {
		return reflect.Value{}, fmt.Errorf("%w: instance %T does not match %s", ErrNotSettings, instance, md.className)
	}
	return rv.Elem(), nil
}

func setParameter(rv reflect.Value, p *ParameterSchema, norm any) error {
	field := rv.FieldByIndex(p.fieldIndex)
	if norm == nil {
		if !p.Nullable {
			return &ConversionError{Class: p.ClassName, Parameter: p.Name, Type: p.TypeName,
				Err: fmt.Errorf("stored null for non-nullable parameter")}
		}
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	native, err := p.Type.ToNative(norm, p)
	if err != nil {
		return &ConversionError{Class: p.ClassName, Parameter: p.Name, Type: p.TypeName, Value: norm, Err: err}
	}
	if err := assignNative(field, native); err != nil {
		return &ConversionError{Class: p.ClassName, Parameter: p.Name, Type: p.TypeName, Value: native, Err: err}
	}
	return nil
}

// assignNative stores an adapter-produced native value into field, allocating
// for pointer (nullable) fields and converting between representation kinds
// (int64 onto int, string onto named string types) without ever crossing kind
// families.
func assignNative(field reflect.Value, native any) error {
	target := field
	targetType := field.Type()
	if targetType.Kind() == reflect.Pointer {
		ptr := reflect.New(targetType.Elem())
		if err := assignNative(ptr.Elem(), native); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	value := reflect.ValueOf(native)
	if value.Type() == targetType {
		target.Set(value)
		return nil
	}
	if convertibleKinds(value, targetType) {
		target.Set(value.Convert(targetType))
		return nil
	}
	return fmt.Errorf("cannot assign %T to field of type %s", native, targetType)
}

func convertibleKinds(value reflect.Value, target reflect.Type) bool {
	if !value.Type().ConvertibleTo(target) {
		return false
	}
	switch target.Kind() {
	case reflect.String:
		return value.Kind() == reflect.String
	case reflect.Bool:
		return value.Kind() == reflect.Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return isIntKind(value.Kind())
	case reflect.Float32, reflect.Float64:
		return isIntKind(value.Kind()) || value.Kind() == reflect.Float32 || value.Kind() == reflect.Float64
	case reflect.Slice:
		return value.Kind() == reflect.Slice &&
			value.Type().Elem().Kind() == reflect.String && target.Elem().Kind() == reflect.String
	case reflect.Struct:
		return value.Type() == target
	}
	return false
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// nativeOf extracts the adapter-facing native value from field. Values come
// back in the representation the builtin adapters expect: int64 for integer
// kinds, float64 for floats, []string for string slices, with time.Time and
// time.Duration passed through.
func nativeOf(field reflect.Value, p *ParameterSchema) (any, bool) {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return nil, true
		}
		field = field.Elem()
	}
	if p.TypeName == "duration" {
		return field.Convert(reflect.TypeOf(time.Duration(0))).Interface(), false
	}
	switch field.Kind() {
	case reflect.String:
		return field.String(), false
	case reflect.Bool:
		return field.Bool(), false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int(), false
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(field.Uint()), false
	case reflect.Float32, reflect.Float64:
		return field.Float(), false
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			out := make([]string, field.Len())
			for i := 0; i < field.Len(); i++ {
				out[i] = field.Index(i).String()
			}
			return out, false
		}
	}
	return field.Interface(), false
}
