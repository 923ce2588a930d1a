package config

import (
	"reflect"
)

// Overlay copies every non-zero field of src onto dst. Both must be pointers
// to the same struct type. A zero value in src never overrides dst, so bool
// fields can only be switched on this way.
func Overlay(dst, src any) {
	dstVal := reflect.ValueOf(dst)
	srcVal := reflect.ValueOf(src)

	if dstVal.Kind() != reflect.Ptr || srcVal.Kind() != reflect.Ptr {
		return
	}
	if dstVal.Type() != srcVal.Type() || dstVal.IsNil() || srcVal.IsNil() {
		return
	}

	overlayValues(dstVal.Elem(), srcVal.Elem())
}

func overlayValues(dst, src reflect.Value) {
	if !dst.CanSet() {
		return
	}
	if dst.Kind() == reflect.Struct {
		for i := 0; i < dst.NumField(); i++ {
			overlayValues(dst.Field(i), src.Field(i))
		}
		return
	}
	if !src.IsZero() {
		dst.Set(src)
	}
}
