// Package quest drives the cross-course quest: which courses are open, how
// far a learner has progressed through each, and when the final
// certificate can be downloaded.
package quest

import (
	"github.com/abhisek/skillquest/internal/progress"
	"github.com/abhisek/skillquest/internal/questapi"
	"github.com/abhisek/skillquest/internal/unlock"
)

// State is the progression state of one quest course.
type State string

const (
	StateLocked           State = "locked"
	StateInProgress       State = "in_progress"
	StateModulesComplete  State = "modules_complete"
	StateAssessmentPassed State = "assessment_passed"
	StateCertified        State = "certified"
)

var stateRank = map[State]int{
	StateLocked:           0,
	StateInProgress:       1,
	StateModulesComplete:  2,
	StateAssessmentPassed: 3,
	StateCertified:        4,
}

// AtLeast reports whether s has reached other.
func (s State) AtLeast(other State) bool { return stateRank[s] >= stateRank[other] }

// Label is the display name of a state.
func (s State) Label() string {
	switch s {
	case StateLocked:
		return "Locked"
	case StateInProgress:
		return "In progress"
	case StateModulesComplete:
		return "Modules complete"
	case StateAssessmentPassed:
		return "Assessment passed"
	case StateCertified:
		return "Certified"
	default:
		return string(s)
	}
}

// Derive computes a course's state. Latched record flags win over what the
// server currently reports, so a course never moves backwards.
func Derive(unlocked bool, modulesDone bool, rec progress.QuestRecord, final progress.FinalRecord) State {
	switch {
	case rec.Certified || (rec.AssessmentPassed && final.Passed):
		return StateCertified
	case rec.AssessmentPassed:
		return StateAssessmentPassed
	case rec.ModulesComplete || (unlocked && modulesDone):
		return StateModulesComplete
	case unlocked:
		return StateInProgress
	default:
		return StateLocked
	}
}

// CourseUnlocked applies the sequence rule to the path: course i opens once
// course i-1 is at 100%.
func CourseUnlocked(quests []questapi.Quest, i int) bool {
	return unlock.SequenceUnlocked(i, func(j int) bool { return quests[j].Progress >= 100 })
}

// ModuleUnlocked applies the sequence rule within a course.
func ModuleUnlocked(modules []questapi.Module, i int) bool {
	return unlock.SequenceUnlocked(i, func(j int) bool { return modules[j].Completed })
}

// AllComplete reports whether every module is completed. An empty course
// is not complete.
func AllComplete(modules []questapi.Module) bool {
	if len(modules) == 0 {
		return false
	}
	for _, m := range modules {
		if !m.Completed {
			return false
		}
	}
	return true
}
