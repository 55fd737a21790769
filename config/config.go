// Package config loads application configuration and exposes it to zuice
// bindings.
//
// Configuration is layered: sources are applied in order, then environment
// variables override whatever they set. Fields tagged with inject become
// name keys:
//
//	type AppConfig struct {
//	    Greeting string `ini:"greeting" env:"GREETING" inject:"greeting"`
//	    Port     int    `ini:"port" env:"PORT"`
//	}
//
//	var cfg AppConfig
//	if err := config.Load(&cfg, config.FromINI("app.ini"), config.FromDotenv()); err != nil {
//	    return err
//	}
//	if err := config.Bind(bindings, &cfg); err != nil {
//	    return err
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/caarlos0/env/v11"
	"github.com/go-ini/ini"
	"github.com/joho/godotenv"

	"github.com/mwilliamson/zuice"
)

// InjectTag is the struct tag naming the key a field is bound to.
const InjectTag = "inject"

// RunModeEnv selects the INI section read by FromINISection when the section
// is empty.
const RunModeEnv = "ENV"

// Source fills target from one configuration source.
type Source func(target any) error

// FromINI maps the default section of the INI file at path onto the target.
func FromINI(path string) Source {
	return func(target any) error {
		file, err := ini.Load(path)
		if err != nil {
			return err
		}
		return file.MapTo(target)
	}
}

// FromINISection maps one section of the INI file at path onto the target.
// An empty section selects the section named by the ENV environment
// variable, so one file can hold the settings of every run mode.
func FromINISection(path, section string) Source {
	return func(target any) error {
		file, err := ini.Load(path)
		if err != nil {
			return err
		}
		if section == "" {
			section = os.Getenv(RunModeEnv)
		}
		return file.Section(section).MapTo(target)
	}
}

// FromDotenv loads the given .env files, or ".env" when none are given, into
// the process environment. Missing files are ignored since .env files are
// usually absent in production. Variables already set are not overridden.
func FromDotenv(files ...string) Source {
	return func(any) error {
		if len(files) == 0 {
			files = []string{".env"}
		}

		for _, file := range files {
			if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading %s: %w", file, err)
			}
		}
		return nil
	}
}

// Load fills target, a pointer to a struct, from sources in order and then
// from environment variables.
func Load(target any, sources ...Source) error {
	if err := checkTarget(target); err != nil {
		return err
	}

	for _, source := range sources {
		if source == nil {
			continue
		}
		if err := source(target); err != nil {
			return err
		}
	}

	return env.Parse(target)
}

// Bind binds cfg, a pointer to a struct, under its own type key, and every
// field tagged with inject under the name in the tag.
func Bind(bindings *zuice.Bindings, cfg any) error {
	if err := checkTarget(cfg); err != nil {
		return err
	}

	var errs []error
	if err := bindings.Bind(zuice.TypeOf(reflect.TypeOf(cfg))).ToInstance(cfg).Err(); err != nil {
		errs = append(errs, err)
	}

	for name, value := range injectedFields(reflect.ValueOf(cfg).Elem()) {
		if err := bindings.BindName(name).ToInstance(value).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Module returns a zuice module applying Bind.
func Module(cfg any) zuice.Module {
	return func(b *zuice.Bindings) error {
		return Bind(b, cfg)
	}
}

// injectedFields collects the tagged fields of v, descending into embedded
// and nested structs.
func injectedFields(v reflect.Value) map[string]any {
	fields := make(map[string]any)
	collectFields(v, fields)
	return fields
}

func collectFields(v reflect.Value, fields map[string]any) {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		field := v.Field(i)
		if name, ok := sf.Tag.Lookup(InjectTag); ok && name != "" && name != "-" {
			fields[name] = field.Interface()
			continue
		}

		if field.Kind() == reflect.Struct {
			collectFields(field, fields)
		}
	}
}

func checkTarget(target any) error {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: target must be a non-nil pointer to a struct, got %T", target)
	}
	return nil
}
