// Package config provides configuration management for wdcrawl.
//
// The package defines the Config struct holding all runtime options, the
// built-in defaults, and the named-preset file format (.wdcrawl).
//
// Configuration is resolved in three layers, later layers winning:
//  1. Built-in defaults (NewConfig)
//  2. The selected preset from the .wdcrawl file, merged with the file's
//     defaults section
//  3. Explicit CLI flags
//
// Design decision: Configuration is passed through the application via
// dependency injection rather than global state. Validate() is called once
// after CLI parsing so that every component downstream can assume a valid
// configuration.
package config
