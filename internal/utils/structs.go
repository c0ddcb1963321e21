package utils

import (
	"fmt"
	"reflect"
)

const columnTag = "db"

// StructTagValues returns the db tag of every exported field, in field
// order. The store layer uses it as the canonical column list so the
// structs in pkg/types stay the single source of truth for the schema.
func StructTagValues(input any) []string {
	value := reflect.ValueOf(input)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		panic("input must be a struct or a pointer to one")
	}

	structType := value.Type()
	result := make([]string, 0, value.NumField())

	for i := 0; i < value.NumField(); i++ {
		if structType.Field(i).PkgPath != "" {
			continue
		}

		tag := structType.Field(i).Tag.Get(columnTag)
		if tag == "" || tag == "-" {
			continue
		}

		result = append(result, tag)
	}

	return result
}

// StructToMap converts a struct to a column->value map for squirrel's
// SetMap. Fields without a db tag are skipped.
func StructToMap(input any) map[string]any {
	value := reflect.ValueOf(input)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		panic("input must be a struct or a pointer to one")
	}

	structType := value.Type()
	result := make(map[string]any)

	for i := 0; i < value.NumField(); i++ {
		if structType.Field(i).PkgPath != "" {
			continue
		}

		tag := structType.Field(i).Tag.Get(columnTag)
		if tag == "" || tag == "-" {
			continue
		}

		result[tag] = value.Field(i).Interface()
	}

	return result
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
