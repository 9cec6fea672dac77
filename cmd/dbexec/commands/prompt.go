package commands

import (
	"fmt"
	"sync"

	"github.com/AlecAivazis/survey/v2"

	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// askPassword reads a backend password from the terminal.
var askPassword = func(backend string) (string, error) {
	var pw string
	err := survey.AskOne(&survey.Password{
		Message: fmt.Sprintf("Password for %s:", backend),
	}, &pw)
	return pw, err
}

// promptSource replaces each backend's configured password with one typed
// at the terminal. Each backend is asked for at most once.
type promptSource struct {
	config.Source
	ask func(backend string) (string, error)

	mu    sync.Mutex
	typed map[string]string
}

func newPromptSource(src config.Source, ask func(string) (string, error)) *promptSource {
	return &promptSource{Source: src, ask: ask, typed: map[string]string{}}
}

// Backend implements config.Source.
func (s *promptSource) Backend(name string) (config.Backend, error) {
	b, err := s.Source.Backend(name)
	if err != nil {
		return config.Backend{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pw, ok := s.typed[b.Name]
	if !ok {
		pw, err = s.ask(b.Name)
		if err != nil {
			return config.Backend{}, dberr.Wrap(dberr.KindConfiguration, "config.prompt", err)
		}
		s.typed[b.Name] = pw
	}
	b.Password = pw
	return b, nil
}
