// Package wizard sequences a fixed list of form steps with validation gates
// between them and a single terminal submission.
package wizard

import (
	"context"
	"strings"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/validation"
)

// Fields maps a field name to its value.
type Fields map[string]string

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// FieldErrors maps a field name to the problem it failed.
type FieldErrors map[string]validation.Problem

// Messages renders every problem with render, falling back to English.
func (e FieldErrors) Messages(render func(validation.Problem) string) map[string]string {
	if render == nil {
		render = validation.Problem.Message
	}
	out := make(map[string]string, len(e))
	for field, p := range e {
		out[field] = render(p)
	}
	return out
}

// ValidateFunc checks a step's input. aggregate is a copy of the data collected
// by earlier steps, so cross-step checks (an OTP bound to a phone number) can
// read it.
type ValidateFunc func(ctx context.Context, input, aggregate Fields) FieldErrors

// StepDefinition describes one step. The wizard copies it on construction.
// A step owns its RequiredFields and Fields; input for any other key is
// dropped, so a later step cannot overwrite what an earlier one verified.
type StepDefinition struct {
	ID             string
	RequiredFields []string
	// Fields lists the optional fields the step collects
	Fields         []string
	Optional       bool
	AcceptsUploads bool
	Validate       ValidateFunc
}

// Owns reports whether name is one of the step's fields.
func (s StepDefinition) Owns(name string) bool {
	for _, f := range s.RequiredFields {
		if f == name {
			return true
		}
	}
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// owned keeps the entries of input the step owns.
func (s StepDefinition) owned(input Fields) Fields {
	out := make(Fields, len(input))
	for k, v := range input {
		if s.Owns(k) {
			out[k] = v
		}
	}
	return out
}

// RulesValidator adapts a declarative rule set to a ValidateFunc.
func RulesValidator(rules validation.Rules) ValidateFunc {
	return func(_ context.Context, input, _ Fields) FieldErrors {
		return FieldErrors(validation.CheckAll(rules, input))
	}
}

// Chain runs validators in order. The first problem reported for a field wins.
func Chain(fns ...ValidateFunc) ValidateFunc {
	return func(ctx context.Context, input, aggregate Fields) FieldErrors {
		errs := FieldErrors{}
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			for field, p := range fn(ctx, input, aggregate) {
				if _, exists := errs[field]; !exists {
					errs[field] = p
				}
			}
		}
		return errs
	}
}

func (s StepDefinition) clone() StepDefinition {
	s.RequiredFields = append([]string(nil), s.RequiredFields...)
	s.Fields = append([]string(nil), s.Fields...)
	return s
}

// Check runs the required-field check and then Validate. It does not touch
// any wizard state.
func (s StepDefinition) Check(ctx context.Context, input, aggregate Fields) FieldErrors {
	errs := FieldErrors{}
	for _, field := range s.RequiredFields {
		if strings.TrimSpace(input[field]) == "" {
			errs[field] = validation.Problem{Code: validation.CodeRequired}
		}
	}
	if s.Validate != nil {
		for field, p := range s.Validate(ctx, input, aggregate) {
			if _, exists := errs[field]; !exists {
				errs[field] = p
			}
		}
	}
	return errs
}
