// Package xp converts completion events into experience and derives levels.
// Experience is the only stored quantity; level and progress are always
// computed from it.
package xp

import "math"

// PerLevel is the experience span of one level.
const PerLevel = 1000

// PeerEvaluationAward is the flat experience for completing a peer review.
const PeerEvaluationAward = 100

// Source identifies what produced an experience award.
type Source string

const (
	SourceQuiz           Source = "quiz"
	SourceAssignment     Source = "assignment"
	SourcePeerEvaluation Source = "peer-evaluation"
)

// Event is a completion that may award experience.
type Event struct {
	Source Source
	// Score is the quiz or assignment score. Ignored for peer evaluations.
	Score int
}

// Amount returns the experience an event is worth. Negative scores award
// nothing.
func (e Event) Amount() int {
	switch e.Source {
	case SourcePeerEvaluation:
		return PeerEvaluationAward
	case SourceQuiz, SourceAssignment:
		return max(e.Score, 0)
	default:
		return 0
	}
}

// Ledger is an experience accumulator.
type Ledger struct {
	Total int
}

// Apply returns the ledger after e and the amount awarded. The receiver is
// not modified.
func (l Ledger) Apply(e Event) (Ledger, int) {
	amt := e.Amount()
	return Ledger{Total: max(l.Total, 0) + amt}, amt
}

// Level returns 1 + floor(xp / 1000).
func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/PerLevel
}

// ForLevel returns the experience at which level starts.
func ForLevel(level int) int {
	if level < 1 {
		return 0
	}
	return (level - 1) * PerLevel
}

// NextLevelAt returns the experience needed to reach the level after the
// one xp is in: currentLevel × 1000.
func NextLevelAt(xp int) int {
	return Level(xp) * PerLevel
}

// Progress returns the percentage of the way from the current level to
// the next, floored.
func Progress(xp int) int {
	if xp < 0 {
		xp = 0
	}
	cur := ForLevel(Level(xp))
	next := NextLevelAt(xp)
	return int(math.Floor(float64(xp-cur) / float64(next-cur) * 100))
}

var titles = []string{
	"Beginner",
	"Student",
	"Learner",
	"Scholar",
	"Expert",
	"Master",
	"Guru",
	"Legend",
	"Champion",
	"Grandmaster",
}

// Title returns the display title for a level. Levels past the last title
// keep it.
func Title(level int) string {
	if level < 1 {
		level = 1
	}
	if level > len(titles) {
		return titles[len(titles)-1]
	}
	return titles[level-1]
}

// Info is the derived view of an experience total.
type Info struct {
	XP          int
	Level       int
	Title       string
	NextLevelAt int
	Progress    int
}

// Describe derives every display value from xp.
func Describe(xp int) Info {
	lvl := Level(xp)
	return Info{
		XP:          xp,
		Level:       lvl,
		Title:       Title(lvl),
		NextLevelAt: NextLevelAt(xp),
		Progress:    Progress(xp),
	}
}
