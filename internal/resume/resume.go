package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// State tracks which candidate parameters have already been probed so an
// interrupted scan can be resumed without re-testing them.
type State struct {
	URL             string   `json:"url"`
	Method          string   `json:"method"`
	CompletedParams []string `json:"completed_params"`
	TotalParams     int      `json:"total_params"`

	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// New creates a new empty resume state that will be saved to the given path.
func New(path, url, method string, totalParams int) *State {
	return &State{
		URL:         url,
		Method:      method,
		TotalParams: totalParams,
		path:        path,
		done:        make(map[string]struct{}),
	}
}

// Load reads an existing resume state from disk. Returns nil if the file
// does not exist.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing resume file: %w", err)
	}

	s.path = path
	s.done = make(map[string]struct{}, len(s.CompletedParams))
	for _, p := range s.CompletedParams {
		s.done[p] = struct{}{}
	}

	return &s, nil
}

// Matches reports whether the saved state belongs to the same scan.
func (s *State) Matches(url, method string) bool {
	return s.URL == url && s.Method == method
}

// MarkCompleted records a parameter as probed.
func (s *State) MarkCompleted(param string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[param]; !ok {
		s.done[param] = struct{}{}
		s.CompletedParams = append(s.CompletedParams, param)
	}
}

// Save writes the current state to disk.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing resume state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// FilterRemaining returns only parameters that haven't been probed yet.
func (s *State) FilterRemaining(params []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var remaining []string
	for _, p := range params {
		if _, ok := s.done[p]; !ok {
			remaining = append(remaining, p)
		}
	}
	return remaining
}

// Remove deletes the resume file (called on successful completion).
func (s *State) Remove() error {
	return os.Remove(s.path)
}
