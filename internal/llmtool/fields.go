package llmtool

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldsFromStruct builds prompt fields from a Go struct. Names come from the
// json tag, descriptions from the prompt_desc tag; a prompt tag of "-"
// skips the field and "optional" clears the required default.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	fields := make([]PromptField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		promptTag := strings.TrimSpace(f.Tag.Get("prompt"))
		if promptTag == "-" {
			continue
		}
		name := fieldName(f)
		if name == "" {
			continue
		}
		fields = append(fields, PromptField{
			Name:        name,
			Type:        typeString(f.Type),
			Required:    promptTag != "optional",
			Description: strings.TrimSpace(f.Tag.Get("prompt_desc")),
		})
	}
	return fields, nil
}

// MustFieldsFromStruct panics on error; useful for prompt spec literals.
func MustFieldsFromStruct(v any) []PromptField {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return fields
}

// MustRenderFields renders a struct's prompt fields in the same bulleted
// form Render uses, for embedding inside another field's description.
func MustRenderFields(v any) string {
	return formatFields(MustFieldsFromStruct(v))
}

func fieldName(f reflect.StructField) string {
	tag := strings.TrimSpace(f.Tag.Get("json"))
	if tag != "" {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func typeString(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float64"
	case reflect.Slice:
		return "[]" + typeString(t.Elem())
	case reflect.Map:
		return fmt.Sprintf("map[%s]%s", typeString(t.Key()), typeString(t.Elem()))
	case reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return "object"
	case reflect.Interface:
		return "any"
	default:
		return t.Kind().String()
	}
}
