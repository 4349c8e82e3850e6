// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/util"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ValidateWithSchema validates a configuration file against the embedded
// JSON schema. Unlike Load it checks the file as written, before defaults
// and environment overrides, and reports every violation at once.
//
//	if err := config.ValidateWithSchema("config.yaml"); err != nil {
//	    fmt.Fprintln(os.Stderr, err)
//	    os.Exit(1)
//	}
func ValidateWithSchema(configPath string) error {
	data, err := util.ReadFileSafely(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return ValidateBytesWithSchema(data)
}

// ValidateBytesWithSchema validates YAML (or JSON) configuration content
func ValidateBytesWithSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// yaml.v3 decodes mappings as map[string]any, which encoding/json accepts
	configJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(configJSON))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		return formatValidationErrors(result.Errors())
	}
	return nil
}

// formatValidationErrors joins schema violations into one error wrapping
// ErrInvalidConfig
func formatValidationErrors(errs []gojsonschema.ResultError) error {
	if len(errs) == 0 {
		return nil
	}

	var b strings.Builder
	for i, e := range errs {
		fmt.Fprintf(&b, "\n  %d. %s: %s", i+1, e.Field(), e.Description())
	}
	return fmt.Errorf("%w:%s", apperrors.ErrInvalidConfig, b.String())
}

// GetSchemaJSON returns the embedded JSON schema
func GetSchemaJSON() string {
	return string(schemaJSON)
}
