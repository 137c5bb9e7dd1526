// Package onboarding runs the seeker interview: a fixed ordered question
// list whose transcript becomes the seeker's matchable profile.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// Questions is the interview script, asked in order. The transcript order
// is part of the canonical text, so the list must stay stable.
var Questions = []string{
	"What's your preferred budget range for rent per month?",
	"Which areas or neighborhoods are you interested in (e.g., Downtown, University Area)?",
	"How many roommates are you looking for, if any?",
	"Are you open to sharing a room, or do you prefer a private one?",
	"What's most important to you in a room: amenities, location, or price?",
}

// ProfileStore is the seeker persistence contract.
type ProfileStore interface {
	Get(ctx context.Context, id string) (domain.SeekerProfile, error)
	Save(ctx context.Context, p domain.SeekerProfile) error
}

// Step is the interview state returned to the caller after each operation.
type Step struct {
	Question string
	Index    int
	Total    int
	Done     bool
}

// Service drives the interview.
type Service struct {
	profiles  ProfileStore
	completer domain.Completer
	logger    *zap.Logger
}

// New creates the onboarding service. completer may be nil when no chat
// provider is configured; Chat then fails with ErrUpstreamUnavailable.
func New(profiles ProfileStore, completer domain.Completer, logger *zap.Logger) *Service {
	return &Service{profiles: profiles, completer: completer, logger: logger}
}

// Next returns the next unanswered question for the seeker, creating the
// profile on first contact.
func (s *Service) Next(ctx context.Context, seekerID, userID string) (Step, error) {
	profile, err := s.load(ctx, seekerID, userID)
	if err != nil {
		return Step{}, err
	}
	return stepFor(profile), nil
}

// Answer records the seeker's answer to the current question and advances
// the interview. After the final answer the profile is marked completed and
// its transcript becomes immutable embedding input.
func (s *Service) Answer(ctx context.Context, seekerID, userID, answer string) (Step, error) {
	if strings.TrimSpace(answer) == "" {
		return Step{}, fmt.Errorf("%w: answer must be non-empty", domain.ErrValidation)
	}

	profile, err := s.load(ctx, seekerID, userID)
	if err != nil {
		return Step{}, err
	}

	idx := len(profile.Answers())
	if profile.Completed() || idx >= len(Questions) {
		return Step{}, fmt.Errorf("%w: interview already completed", domain.ErrValidation)
	}

	profile, err = profile.WithAnswer(Questions[idx], answer)
	if err != nil {
		return Step{}, err
	}
	if len(profile.Answers()) == len(Questions) {
		profile = profile.WithCompleted()
		s.logger.Info("seeker completed onboarding", zap.String("seeker_id", seekerID))
	}

	if err := s.profiles.Save(ctx, profile); err != nil {
		return Step{}, fmt.Errorf("save seeker %s: %w", seekerID, err)
	}
	return stepFor(profile), nil
}

// Profile returns the seeker's interview state.
func (s *Service) Profile(ctx context.Context, seekerID string) (domain.SeekerProfile, error) {
	return s.profiles.Get(ctx, seekerID)
}

// Chat relays a freeform prompt to the chat provider. Conversational sugar
// only: replies never feed the matchable transcript.
func (s *Service) Chat(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt must be non-empty", domain.ErrValidation)
	}
	if s.completer == nil {
		return "", fmt.Errorf("%w: no chat provider configured", domain.ErrUpstreamUnavailable)
	}
	return s.completer.Complete(ctx, prompt)
}

func (s *Service) load(ctx context.Context, seekerID, userID string) (domain.SeekerProfile, error) {
	profile, err := s.profiles.Get(ctx, seekerID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.SeekerProfile{}, fmt.Errorf("load seeker %s: %w", seekerID, err)
	}

	profile, err = domain.NewSeekerProfile(seekerID, userID)
	if err != nil {
		return domain.SeekerProfile{}, err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return domain.SeekerProfile{}, fmt.Errorf("create seeker %s: %w", seekerID, err)
	}
	return profile, nil
}

func stepFor(p domain.SeekerProfile) Step {
	idx := len(p.Answers())
	if p.Completed() || idx >= len(Questions) {
		return Step{Index: len(Questions), Total: len(Questions), Done: true}
	}
	return Step{Question: Questions[idx], Index: idx, Total: len(Questions)}
}
