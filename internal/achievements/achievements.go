// Package achievements awards badges for learner milestones. Badges are
// cosmetic and never grant experience.
package achievements

import (
	"fmt"
	"time"

	"github.com/abhisek/skillquest/internal/progress"
)

// Badge identifies an achievement.
type Badge string

const (
	BadgeFirstCourse     Badge = "first-course"
	BadgeQuizMaster      Badge = "quiz-master"
	BadgeAssignmentAce   Badge = "assignment-ace"
	BadgeCourseCollector Badge = "course-collector"
	BadgePeerMentor      Badge = "peer-mentor"
)

// AllBadges returns every badge in display order.
func AllBadges() []Badge {
	return []Badge{BadgeFirstCourse, BadgeQuizMaster, BadgeAssignmentAce, BadgeCourseCollector, BadgePeerMentor}
}

// DisplayName returns a human-readable badge name.
func (b Badge) DisplayName() string {
	switch b {
	case BadgeFirstCourse:
		return "First Course"
	case BadgeQuizMaster:
		return "Quiz Master"
	case BadgeAssignmentAce:
		return "Assignment Ace"
	case BadgeCourseCollector:
		return "Course Collector"
	case BadgePeerMentor:
		return "Peer Mentor"
	default:
		return string(b)
	}
}

// Icon returns the badge glyph.
func (b Badge) Icon() string {
	switch b {
	case BadgeFirstCourse:
		return "🏁"
	case BadgeQuizMaster:
		return "🧠"
	case BadgeAssignmentAce:
		return "🏆"
	case BadgeCourseCollector:
		return "📚"
	case BadgePeerMentor:
		return "🤝"
	default:
		return "★"
	}
}

// Rarity is the difficulty tier of a badge.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// rule is a badge's unlock threshold over learner statistics.
type rule struct {
	badge     Badge
	rarity    Rarity
	threshold int
	count     func(progress.Stats) int
	reason    string
}

var rules = []rule{
	{BadgeFirstCourse, RarityCommon, 1, func(s progress.Stats) int { return s.Certificates }, "Earned your first certificate"},
	{BadgeQuizMaster, RarityRare, 5, func(s progress.Stats) int { return s.PerfectQuizzes }, "Scored 100%% on %d quizzes"},
	{BadgePeerMentor, RarityRare, 5, func(s progress.Stats) int { return s.EvaluationsGiven }, "Reviewed %d peer submissions"},
	{BadgeAssignmentAce, RarityEpic, 10, func(s progress.Stats) int { return s.Assignments }, "Passed %d assignments"},
	{BadgeCourseCollector, RarityLegendary, 5, func(s progress.Stats) int { return s.Certificates }, "Earned %d certificates"},
}

// Award is a newly unlocked badge.
type Award struct {
	Badge     Badge
	Rarity    Rarity
	Reason    string
	AwardedAt time.Time
}

// Unlock records every badge whose threshold p now meets and has not been
// awarded before. It returns the new awards.
func Unlock(p *progress.LearnerProgress, now time.Time) []Award {
	var out []Award
	for _, r := range rules {
		if _, have := p.Achievements[string(r.badge)]; have {
			continue
		}
		if r.count(p.Stats) < r.threshold {
			continue
		}
		reason := r.reason
		if r.threshold > 1 {
			reason = fmt.Sprintf(r.reason, r.threshold)
		}
		p.Achievements[string(r.badge)] = now.UTC()
		out = append(out, Award{Badge: r.badge, Rarity: r.rarity, Reason: reason, AwardedAt: now.UTC()})
	}
	return out
}

// Earned lists a learner's badges in display order.
func Earned(p *progress.LearnerProgress) []Badge {
	var out []Badge
	for _, b := range AllBadges() {
		if _, ok := p.Achievements[string(b)]; ok {
			out = append(out, b)
		}
	}
	return out
}
