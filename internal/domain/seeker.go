package domain

import (
	"fmt"
	"strings"
)

// QA is one answered interview question. Order of QAs is interview order.
type QA struct {
	Question string
	Answer   string
}

// SeekerProfile is the seeker aggregate: an ordered interview transcript
// plus a completion flag. It becomes embedding input only once completed.
type SeekerProfile struct {
	id        string
	userID    string
	answers   []QA
	completed bool
}

// NewSeekerProfile creates an empty, incomplete profile for a user.
func NewSeekerProfile(id, userID string) (SeekerProfile, error) {
	if id == "" {
		return SeekerProfile{}, fmt.Errorf("%w: seeker id is required", ErrValidation)
	}
	if userID == "" {
		return SeekerProfile{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return SeekerProfile{id: id, userID: userID}, nil
}

// ReconstructSeekerProfile hydrates a profile from storage without validation.
func ReconstructSeekerProfile(id, userID string, answers []QA, completed bool) SeekerProfile {
	return SeekerProfile{id: id, userID: userID, answers: answers, completed: completed}
}

// EntityID returns the seeker identifier.
func (p *SeekerProfile) EntityID() string { return p.id }

// Kind returns KindSeeker.
func (p *SeekerProfile) Kind() EntityKind { return KindSeeker }

// UserID returns the owning user identifier.
func (p *SeekerProfile) UserID() string { return p.userID }

// Completed reports whether the interview has finished.
func (p *SeekerProfile) Completed() bool { return p.completed }

// Answers returns the interview transcript in interview order.
func (p *SeekerProfile) Answers() []QA { return p.answers }

// Answered reports whether the given question already has an answer.
func (p *SeekerProfile) Answered(question string) bool {
	for _, qa := range p.answers {
		if qa.Question == question {
			return true
		}
	}
	return false
}

// WithAnswer returns a copy with one more answer appended in interview order.
// Empty answers are rejected; answering after completion is rejected.
func (p *SeekerProfile) WithAnswer(question, answer string) (SeekerProfile, error) {
	if p.completed {
		return SeekerProfile{}, fmt.Errorf("%w: profile already completed", ErrValidation)
	}
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return SeekerProfile{}, fmt.Errorf("%w: question and answer must be non-empty", ErrValidation)
	}
	c := p.clone()
	c.answers = append(c.answers, QA{Question: question, Answer: answer})
	return c, nil
}

// WithCompleted returns a copy with the completion flag set. From this point
// the transcript is immutable embedding input.
func (p *SeekerProfile) WithCompleted() SeekerProfile {
	c := p.clone()
	c.completed = true
	return c
}

// CanonicalText concatenates the Q/A pairs in interview order. Order matters:
// reordering questions changes the hash and triggers regeneration.
func (p *SeekerProfile) CanonicalText() string {
	var b strings.Builder
	for i, qa := range p.answers {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Q: ")
		b.WriteString(normalizeWhitespace(qa.Question))
		b.WriteString(" A: ")
		b.WriteString(normalizeWhitespace(qa.Answer))
	}
	return b.String()
}

func (p *SeekerProfile) clone() SeekerProfile {
	answers := make([]QA, len(p.answers))
	copy(answers, p.answers)
	return SeekerProfile{id: p.id, userID: p.userID, answers: answers, completed: p.completed}
}
