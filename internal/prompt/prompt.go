// Package prompt abstracts the interactive select/confirm surface so the
// decision chain can be driven by a terminal UI or scripted in tests.
package prompt

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// Option is one selectable choice. Value is returned from Select.
type Option struct {
	Label string
	Value string
}

type Prompter interface {
	// Select presents options and returns the chosen value.
	Select(title string, options []Option) (string, error)
	// Confirm asks a yes/no question.
	Confirm(title string) (bool, error)
}

// Huh is the terminal Prompter backed by charmbracelet/huh.
type Huh struct{}

func (Huh) Select(title string, options []Option) (string, error) {
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}

	var choice string
	err := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&choice).
		Run()
	if err != nil {
		return "", err
	}
	return choice, nil
}

func (Huh) Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Script replays canned answers in order. Test helper.
type Script struct {
	Answers []string
	// Selections records every title presented, for assertions.
	Selections []string
}

func (s *Script) Select(title string, options []Option) (string, error) {
	s.Selections = append(s.Selections, title)
	if len(s.Answers) == 0 {
		return "", errors.New("script exhausted")
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	for _, o := range options {
		if o.Value == answer {
			return answer, nil
		}
	}
	return "", fmt.Errorf("scripted answer %q not offered", answer)
}

func (s *Script) Confirm(title string) (bool, error) {
	answer, err := s.Select(title, []Option{{Label: "yes", Value: "y"}, {Label: "no", Value: "n"}})
	if err != nil {
		return false, err
	}
	return answer == "y", nil
}
