package seeker

import "github.com/kailas-cloud/roommatch/internal/domain"

// profileDTO is the persisted shape of a seeker profile. Answers keep
// interview order: a JSON array, never a map.
type profileDTO struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Answers   []qaDTO `json:"answers"`
	Completed bool    `json:"completed_onboarding"`
}

type qaDTO struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func buildProfileDTO(p domain.SeekerProfile) profileDTO {
	answers := make([]qaDTO, len(p.Answers()))
	for i, qa := range p.Answers() {
		answers[i] = qaDTO{Question: qa.Question, Answer: qa.Answer}
	}
	return profileDTO{
		ID:        p.EntityID(),
		UserID:    p.UserID(),
		Answers:   answers,
		Completed: p.Completed(),
	}
}

func (d profileDTO) toDomain() domain.SeekerProfile {
	answers := make([]domain.QA, len(d.Answers))
	for i, qa := range d.Answers {
		answers[i] = domain.QA{Question: qa.Question, Answer: qa.Answer}
	}
	return domain.ReconstructSeekerProfile(d.ID, d.UserID, answers, d.Completed)
}
