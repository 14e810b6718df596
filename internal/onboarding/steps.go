// Package onboarding infers which setup milestones a church has reached and
// guides its pastor to the next one.
package onboarding

import "github.com/ekkle/ekkle-admin/internal/db/models"

// Steps is the completion vector of the four onboarding milestones, in order.
type Steps struct {
	ChurchName     bool `json:"church_name"`
	FirstCell      bool `json:"first_cell"`
	MembersAdded   bool `json:"members_added"`
	SiteConfigured bool `json:"site_configured"`
}

// StepsOf extracts the step flags of a stored status. A nil status has no steps done.
func StepsOf(s *models.OnboardingStatus) Steps {
	if s == nil {
		return Steps{}
	}
	return Steps{
		ChurchName:     s.StepChurchName,
		FirstCell:      s.StepFirstCell,
		MembersAdded:   s.StepMembersAdded,
		SiteConfigured: s.StepSiteConfigured,
	}
}

func (s Steps) ordered() [4]bool {
	return [4]bool{s.ChurchName, s.FirstCell, s.MembersAdded, s.SiteConfigured}
}

// Done reports whether every step is complete.
func (s Steps) Done() bool {
	return s.ChurchName && s.FirstCell && s.MembersAdded && s.SiteConfigured
}

// Or returns the step-wise union of s and other. Steps never go back to false.
func (s Steps) Or(other Steps) Steps {
	return Steps{
		ChurchName:     s.ChurchName || other.ChurchName,
		FirstCell:      s.FirstCell || other.FirstCell,
		MembersAdded:   s.MembersAdded || other.MembersAdded,
		SiteConfigured: s.SiteConfigured || other.SiteConfigured,
	}
}

// Guidance sent to the pastor, indexed by step; the last entry is sent once
// every step is complete.
var stepMessages = [5]string{
	"Vamos começar! Qual é o nome da sua igreja?",
	"Ótimo! Agora crie a primeira célula da sua igreja.",
	"Muito bem! Cadastre pelo menos 3 membros para continuar.",
	"Quase lá! Configure o endereço do site da sua igreja.",
	"Parabéns! A configuração da sua igreja está completa.",
}

// NextStepMessage returns the guidance for the first incomplete step, or the
// completion message.
func NextStepMessage(s Steps) string {
	return stepMessages[CurrentStep(s)-1]
}

// Progress returns the completion percentage: 25 per finished step.
func Progress(s Steps) int {
	n := 0
	for _, done := range s.ordered() {
		if done {
			n++
		}
	}
	return n * 25
}

// CurrentStep returns the 1-based ordinal of the first incomplete step, or 5 when
// all four are complete.
func CurrentStep(s Steps) int {
	for i, done := range s.ordered() {
		if !done {
			return i + 1
		}
	}
	return 5
}
