// Package file provides file-backed configuration adapters.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.paperchat/config.toml
//   - PromptStore: editable prompt templates under ~/.paperchat/prompts
package file
