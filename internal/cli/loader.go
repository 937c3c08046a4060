package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/ripple/internal/scenario"
)

// LoadMode controls how errors are handled during scenario loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedScenario is one successfully loaded scenario file.
type LoadedScenario struct {
	Path     string
	Document *scenario.Document
}

// LoadResult contains the scenarios found under the given paths.
type LoadResult struct {
	Scenarios []LoadedScenario
	FileCount int // Number of scenario files found
}

// LoadError represents an error that occurred while loading a scenario.
type LoadError struct {
	Code    string
	Message string
	Path    string // File the error belongs to, if any
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadScenarios loads every scenario file named by paths. A directory
// contributes the scenario files below it whose base name matches filter
// (all of them when filter is empty); a file is always loaded.
//
// Each document is also checked for dependency cycles, so a returned
// scenario can be built. If mode is LoadModeFailFast, returns on first
// error; if LoadModeCollectAll, loads everything it can.
func LoadScenarios(paths []string, filter string, mode LoadMode) (*LoadResult, []error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}}
		}
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", p, err)}}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := FindScenarioFiles(p, filter)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no scenario files found in %s", strings.Join(paths, ", "))}}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, path := range files {
		doc, err := loadScenario(path)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Scenarios = append(result.Scenarios, LoadedScenario{Path: path, Document: doc})
	}
	return result, errs
}

// loadScenario loads one file and classifies its failure.
func loadScenario(path string) (*scenario.Document, error) {
	doc, err := scenario.Load(path)
	if err != nil {
		code := ErrCodeLoadFailed
		if errors.Is(err, scenario.ErrInvalid) {
			code = ErrCodeInvalid
		}
		return nil, &LoadError{Code: code, Message: err.Error(), Path: path}
	}
	if _, err := scenario.BuildOrder(doc.Stores); err != nil {
		return nil, &LoadError{Code: ErrCodeCycle, Message: err.Error(), Path: path}
	}
	return doc, nil
}

// FindScenarioFiles walks dir and returns the .yaml, .yml and .cue files
// whose base name (without extension) matches the glob filter. Files under
// a golden/ directory are skipped.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" && ext != ".cue" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // File unreadable or not YAML/CUE
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeInvalid     = "E006" // Document failed validation
	ErrCodeWriteFailed = "E007" // Golden file write error
	ErrCodeCycle       = "E008" // Store dependency cycle
	ErrCodeDatabase    = "E009" // Trace log error
)
