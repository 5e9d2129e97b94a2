// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - SettingsStore: TOML-based settings storage
//   - PromptStore: user-editable LLM prompt templates
package file
