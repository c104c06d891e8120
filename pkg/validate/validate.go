// Package validate checks request structs against `validate` tags.
//
// Rules, comma separated:
//
//	required      non-empty (strings are trimmed first)
//	email         address shape
//	min=N, max=N  string: rune length; number: value
//	gte=N         number lower bound
//	in=a,b,c      one of the listed values; must be the last rule
//
// Every rule but required passes on an empty value.
//
// Example:
//
//	type RegisterInput struct {
//	    Username string `json:"username" validate:"required,max=100"`
//	    Email    string `json:"email"    validate:"required,email"`
//	    Password string `json:"password" validate:"required,min=6"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Struct returns json field name to first failing message. An empty map
// means v is valid.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		value := rv.Field(i)
		if value.Kind() == reflect.Ptr && !value.IsNil() {
			value = value.Elem()
		}

		name := jsonFieldName(field)
		for _, rule := range splitRules(tag) {
			if msg := apply(rule, name, value); msg != "" {
				errs[name] = msg
				break
			}
		}
	}

	return errs
}

func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	if key != "required" && isEmpty(v) {
		// Absent optional values are only checked by required.
		return ""
	}
	raw := fmt.Sprintf("%v", v.Interface())

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(strings.TrimSpace(raw)) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "min":
		n := parseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		} else if float64(len([]rune(raw))) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		n := parseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		} else if float64(len([]rune(raw))) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "gte":
		if toFloat(v) < parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "in":
		for _, a := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	default:
		return fmt.Sprintf("The %s has an unknown rule %q.", field, key)
	}

	return ""
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", v.Interface())), 64)
	return f
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

// splitRules splits on commas; everything after "in=" belongs to it.
func splitRules(tag string) []string {
	if strings.HasPrefix(tag, "in=") {
		return []string{tag}
	}
	head, list, found := strings.Cut(tag, ",in=")
	if !found {
		return strings.Split(tag, ",")
	}
	return append(strings.Split(head, ","), "in="+list)
}
