// Package color provides terminal color theming for acceptance.
//
// This package centralizes the styles used when rendering scenario
// results and summaries, so every command colors passed, failed and
// skipped outcomes the same way.
//
// # Core Functionality
//
// The package provides:
//   - Semantic styles for result outcomes (success, error, warning)
//   - Supporting styles for headers, informational and muted text
//   - Dark and light background support via adaptive colors
//
// # Theme System
//
// Colors are organized into semantic categories:
//   - Success: passing scenarios and healthy summaries
//   - Error: failing scenarios and fatal conditions
//   - Warning: skipped scenarios and degraded states
//   - Info: informational elements
//   - Muted: de-emphasized text such as skip reasons
//
// # Usage Example
//
//	color.Initialize(true) // dark terminal
//
//	fmt.Println(color.Passed("PASS"), scenario.Name)
//	fmt.Println(color.Skipped("SKIP"), color.MutedStyle.Render(reason))
//
// # Adaptive Rendering
//
// Styles use adaptive colors, so the palette adjusts to the terminal
// background reported at startup. When the terminal reports no color
// support, styles render as plain text.
package color
