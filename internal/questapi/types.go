package questapi

// Quest is one course on the adventure path.
type Quest struct {
	ID          int     `json:"id"`
	QuestNumber int     `json:"quest_number"`
	Title       string  `json:"title"`
	Progress    float64 `json:"progress"`
	Locked      bool    `json:"locked"`
}

// Lesson is a lesson inside a module. Servers may omit lessons.
type Lesson struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// Module is a unit of a quest course.
type Module struct {
	Index     int      `json:"index"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	Lessons   []Lesson `json:"lessons,omitempty"`
}

// Question is an assessment item. CorrectAnswer is usually withheld.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
}

// Assessment is a course or final assessment.
type Assessment struct {
	Questions []Question `json:"questions"`
}

// Result is the graded outcome of an assessment submission.
type Result struct {
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`
}

type completeModuleRequest struct {
	Index int `json:"index"`
}

type answersRequest struct {
	Answers []int `json:"answers"`
}
