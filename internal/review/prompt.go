package review

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/abhisek/skillquest/internal/roadmap"
)

const systemPrompt = `You are a fair, specific reviewer grading a learner's assignment against a fixed rubric. Grade only what is in the submission. Never award more than a criterion's maximum points.`

func buildUserMessage(title string, a *roadmap.Assignment, content string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Assignment: %s\n", title)
	fmt.Fprintf(&b, "Prompt:\n%s\n", strings.TrimSpace(a.Prompt))

	b.WriteString("\nRubric:\n")
	for _, c := range a.Rubric {
		fmt.Fprintf(&b, "- %s (max %d points)", c.Name, c.Points)
		if c.Description != "" {
			fmt.Fprintf(&b, ": %s", c.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Passing score: %d of 100\n", a.PassScore)

	b.WriteString("\nSubmission:\n```\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	b.WriteString(`
Instructions:
1. Award points for every rubric criterion, one entry each.
2. Justify each award in one sentence that cites the submission.
3. List strengths and improvements the learner can act on.
4. Keep the overall feedback encouraging but honest.`)

	return b.String()
}

func rubricKey(r roadmap.Rubric) string {
	h := sha1.New()
	for _, c := range r {
		fmt.Fprintf(h, "%s:%d;", c.Name, c.Points)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
