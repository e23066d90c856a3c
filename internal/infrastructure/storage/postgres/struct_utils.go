package postgres

import (
	"reflect"
	"sync"
)

// column is one "db" tagged field, possibly inside embedded structs.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // reflect.Type -> []column

// columnsFor flattens embedded structs in declaration order, so
// BaseDocument columns come first.
func columnsFor(t reflect.Type) []column {
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}
	cols := walkColumns(t, nil)
	columnCache.Store(t, cols)
	return cols
}

func walkColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, prefix...), i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			cols = append(cols, walkColumns(field.Type, index)...)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		cols = append(cols, column{name: tag, index: index})
	}
	return cols
}

func structType(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

// ExtractDBColumns lists the column names of T. Repositories call it once
// when they are built.
func ExtractDBColumns[T any]() []string {
	t, ok := structType(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return nil
	}
	cols := columnsFor(t)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap returns column -> value for an insert or update builder.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsFor(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
