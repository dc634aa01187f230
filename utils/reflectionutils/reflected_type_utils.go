package reflectionutils

import (
	"reflect"
	"unsafe"
)

// ArrayToSlice converts a reflected array into a slice.
// Returns the slice.
func ArrayToSlice(reflectedArray reflect.Value) any {
	sliceType := reflect.SliceOf(reflectedArray.Type().Elem())
	resultingSlice := reflect.MakeSlice(sliceType, reflectedArray.Len(), reflectedArray.Len())
	for i := 0; i < reflectedArray.Len(); i++ {
		resultingSlice.Index(i).Set(reflect.ValueOf(reflectedArray.Index(i).Interface()))
	}
	return resultingSlice.Interface()
}

// SliceToArray converts a reflected slice into an array of the same size.
// Returns the array.
func SliceToArray(reflectedSlice reflect.Value) any {
	arrayType := reflect.ArrayOf(reflectedSlice.Len(), reflectedSlice.Type().Elem())
	resultingArray := reflect.New(arrayType).Elem()
	for i := 0; i < reflectedSlice.Len(); i++ {
		resultingArray.Index(i).Set(reflect.ValueOf(reflectedSlice.Index(i).Interface()))
	}
	return resultingArray.Interface()
}

// CopyReflectedType creates a shallow copy of a reflected value. It supports slices, arrays, or structs.
// This method panics if another type is provided.
// Returns the reflected copied value.
func CopyReflectedType(reflectedValue reflect.Value) reflect.Value {
	switch reflectedValue.Kind() {
	case reflect.Slice:
		elementType := reflectedValue.Type().Elem()
		newSlice := reflect.MakeSlice(reflect.SliceOf(elementType), reflectedValue.Len(), reflectedValue.Cap())
		for i := 0; i < reflectedValue.Len(); i++ {
			newSlice.Index(i).Set(reflect.ValueOf(reflectedValue.Index(i).Interface()))
		}
		return newSlice
	case reflect.Array:
		arrayType := reflect.ArrayOf(reflectedValue.Len(), reflectedValue.Type().Elem())
		newArray := reflect.New(arrayType).Elem()
		for i := 0; i < reflectedValue.Len(); i++ {
			newArray.Index(i).Set(reflect.ValueOf(reflectedValue.Index(i).Interface()))
		}
		return newArray
	case reflect.Struct:
		newStruct := reflect.Indirect(reflect.New(reflectedValue.Type()))
		for i := 0; i < reflectedValue.NumField(); i++ {
			SetField(newStruct.Field(i), GetField(reflectedValue.Field(i)))
		}
		return newStruct
	}
	panic("failed to copy reflected value, type not supported")
}

// GetField obtains a given field's value, even if it is unexported.
func GetField(field reflect.Value) any {
	// If we can't grab a value, but we can address it, create a pointer to the field's data to fetch it.
	if !field.CanInterface() && field.CanAddr() {
		dataPointer := unsafe.Pointer(field.UnsafeAddr())
		return reflect.NewAt(field.Type(), dataPointer).Elem().Interface()
	}
	return field.Interface()
}

// SetField sets a given field's value, even if it is unexported.
func SetField(field reflect.Value, value any) {
	// If this is an unexported field, create a new value sharing the same data pointer and write through it.
	if !field.CanSet() && field.CanAddr() {
		dataPointer := unsafe.Pointer(field.UnsafeAddr())
		newValue := reflect.NewAt(field.Type(), dataPointer).Elem()
		newValue.Set(reflect.ValueOf(value))
		return
	}
	field.Set(reflect.ValueOf(value))
}
