// Package config defines the Callisto configuration model and its
// loading pipeline: YAML file, defaults, environment overrides, and
// validation.
//
// Configuration is loaded in four steps:
//
//  1. Parse the YAML file.
//  2. Apply defaults for unset fields.
//  3. Apply CALLISTO_* environment variable overrides.
//  4. Validate the final configuration.
//
// Environment variables follow the naming convention
// CALLISTO_SECTION_FIELD, e.g. CALLISTO_SOURCE_PATH or
// CALLISTO_ENGINE_FAIL_MODE, and always take precedence over the file.
package config
