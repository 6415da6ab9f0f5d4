// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ctyconv

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var ctyValueType = reflect.TypeOf(cty.Value{})

// Decode populates the Go value target points to from val. Struct fields are
// matched by their `cty` tag; untagged fields and attributes without a field
// are ignored. Null values leave the target untouched, fields of type
// cty.Value receive the value as is, and `any` receives its native form.
func Decode(val cty.Value, target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	return decode(val, ptr.Elem())
}

func decode(val cty.Value, dst reflect.Value) error {
	goType := dst.Type()

	if goType == ctyValueType {
		if val.IsKnown() {
			dst.Set(reflect.ValueOf(val))
		}
		return nil
	}
	if !val.IsKnown() || val.IsNull() {
		return nil
	}

	switch goType.Kind() {
	case reflect.Pointer:
		elem := reflect.New(goType.Elem())
		if err := decode(val, elem.Elem()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil

	case reflect.Struct:
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return fmt.Errorf("type mismatch: cannot decode %s into Go struct %s", val.Type().FriendlyName(), goType)
		}
		attrs := val.AsValueMap()
		for i := 0; i < goType.NumField(); i++ {
			field := goType.Field(i)
			if !field.IsExported() {
				continue
			}
			name := strings.Split(field.Tag.Get("cty"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			attr, ok := attrs[name]
			if !ok {
				continue
			}
			if err := decode(attr, dst.Field(i)); err != nil {
				return fmt.Errorf("in attribute '%s': %w", name, err)
			}
		}
		return nil

	case reflect.Interface:
		native, err := ToNative(val)
		if err != nil {
			return err
		}
		if native != nil {
			dst.Set(reflect.ValueOf(native))
		}
		return nil

	case reflect.Map:
		if goType.Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", goType.Key())
		}
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return fmt.Errorf("type mismatch: cannot decode %s into Go map %s", val.Type().FriendlyName(), goType)
		}
		m := reflect.MakeMapWithSize(goType, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			key, elemVal := it.Element()
			elem := reflect.New(goType.Elem()).Elem()
			if err := decode(elemVal, elem); err != nil {
				return fmt.Errorf("in key '%s': %w", key.AsString(), err)
			}
			m.SetMapIndex(reflect.ValueOf(key.AsString()).Convert(goType.Key()), elem)
		}
		dst.Set(m)
		return nil

	case reflect.Slice:
		ty := val.Type()
		if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
			return fmt.Errorf("type mismatch: cannot decode %s into Go slice %s", ty.FriendlyName(), goType)
		}
		s := reflect.MakeSlice(goType, val.LengthInt(), val.LengthInt())
		i := 0
		for it := val.ElementIterator(); it.Next(); i++ {
			_, elemVal := it.Element()
			if err := decode(elemVal, s.Index(i)); err != nil {
				return fmt.Errorf("in element %d: %w", i, err)
			}
		}
		dst.Set(s)
		return nil
	}

	// Primitives: convert to the type gocty implies for the target first, so
	// a number given as "3" still lands in an int field.
	want, err := gocty.ImpliedType(dst.Addr().Interface())
	if err != nil {
		return fmt.Errorf("unsupported target type %s: %w", goType, err)
	}
	converted, err := convert.Convert(val, want)
	if err != nil {
		return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), want.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, dst.Addr().Interface())
}
