// Package validate checks client profile JSON files. It checks:
//   - JSON structure
//   - Server and share URLs
//   - Lock policy and lock timeout
//   - Keepalive timings (ping shorter than pong, nothing negative)
//
// It also warns about settings that are legal but likely to surprise,
// such as the round lock policy without a lock timeout.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/rpsls/game/config"
	"github.com/wricardo/rpsls/game/engine"
)

// Result captures the outcome of validating a single file. If Valid is
// true, Messages holds informational lines; otherwise it holds the
// problems that were found.
type Result struct {
	File     string
	Valid    bool
	Messages []string
	Warnings []string
}

// File loads and validates a single profile JSON file
func File(filePath string) Result {
	result := Result{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	profile := config.Defaults()
	profile.Name = ""
	profile.Description = ""
	if err := json.Unmarshal(data, profile); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := config.ValidateProfile(profile); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, flatten(err)...)
		return result
	}

	policy := profile.Policy()
	if policy == engine.ReleaseOnRoundAdvance && profile.LockTimeout == 0 {
		result.Warnings = append(result.Warnings,
			"lock_policy is round without a lock_timeout; a server that never advances the round keeps plays locked")
	}
	if profile.PongWait == 0 && profile.PingPeriod > 0 {
		result.Warnings = append(result.Warnings,
			"ping_period is set but pong_wait is not; a silent server will not be detected")
	}

	timeout := "none"
	if profile.LockTimeout > 0 {
		timeout = profile.LockTimeout.Std().String()
	}

	result.Messages = append(result.Messages, fmt.Sprintf("✓ Name: %s", profile.Name))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Server: %s", profile.ServerURL))
	if profile.ShareBaseURL != "" {
		result.Messages = append(result.Messages, fmt.Sprintf("✓ Share links: %s", profile.ShareBaseURL))
	}
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Lock: %s (timeout %s)", policy, timeout))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Keepalive: ping %s, pong %s",
		profile.PingPeriod.Std(), profile.PongWait.Std()))

	return result
}

// Dir validates every *.json file in dir, in name order
func Dir(dir string) ([]Result, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding config files: %w", err)
	}

	results := make([]Result, 0, len(files))
	for _, file := range files {
		results = append(results, File(file))
	}
	return results, nil
}

// Report prints a concise report to w and reports whether every result
// was valid
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Messages {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				fmt.Fprintln(w, "  ❌ "+msg)
			}
		}

		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No configurations found")
	case allValid:
		fmt.Fprintln(w, "✅ All configurations are valid!")
	default:
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

// flatten splits a joined error into one line per problem
func flatten(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, flatten(e)...)
		}
		return lines
	}
	return []string{err.Error()}
}
