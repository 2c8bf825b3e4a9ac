package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"reflect"

	"github.com/roach88/arclot/internal/naming"
)

// LookupFunc reads an environment variable.
type LookupFunc func(name string) (string, bool)

// EnvName returns the variable that carries values of v's type: the package
// and type name rendered upper underscore, HANDLER_CONFIG for handler.Config.
// The package name is dropped when the type name already starts with it.
func EnvName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return ""
	}

	typeLabel := naming.Of(t.Name())
	pkgLabel := naming.Of(path.Base(t.PkgPath()))
	if pkgLabel.IsNull() || hasPrefixLabel(typeLabel, pkgLabel) {
		return typeLabel.UpperUnderscore()
	}
	return pkgLabel.With(typeLabel).UpperUnderscore()
}

func hasPrefixLabel(label, prefix naming.Label) bool {
	l, p := label.LowerUnderscore(), prefix.LowerUnderscore()
	return l == p || len(l) > len(p) && l[:len(p)+1] == p+"_"
}

// ToEnv serializes v as JSON under its variable name.
func ToEnv(v any) (name, value string, err error) {
	name = EnvName(v)
	if name == "" {
		return "", "", fmt.Errorf("env bridge requires a named type, got %T", v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("encode %s: %w", name, err)
	}
	return name, string(data), nil
}

// FromEnv decodes the variable named after v's type into v, which must be a
// pointer. A nil lookup reads the process environment.
func FromEnv(lookup LookupFunc, v any) error {
	if reflect.TypeOf(v) == nil || reflect.TypeOf(v).Kind() != reflect.Pointer {
		return fmt.Errorf("env bridge decodes into a pointer, got %T", v)
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	name := EnvName(v)
	raw, ok := lookup(name)
	if !ok || raw == "" {
		return fmt.Errorf("environment variable %s is not set", name)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
