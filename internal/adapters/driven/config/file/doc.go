// Package file provides file-based implementations of driven port interfaces.
// Everything lives under the docchat home directory (~/.docchat, or
// $DOCCHAT_HOME when set).
//
// Adapters:
//   - ConfigStore: TOML settings in config.toml
//   - PromptStore: editable prompt templates in prompts/*.txt
package file
