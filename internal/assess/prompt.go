package assess

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskpulse/taskpulse/internal/models"
)

// maxReasonWords bounds the stored/posted justification texts.
const maxReasonWords = 30

// systemPrompt fixes the scoring methodology the model must apply. The K
// thresholds and quality bands are deterministic so two runs over the same
// inputs land in the same scoring band.
const systemPrompt = `You are an AI expert in assessing task execution efficiency. Your role is to analyze a task objectively, studying its context carefully, and provide an independent assessment of speed and quality.

ASSESSMENT METHODOLOGY:

1. SPEED SCORE (1-5):
Compute the ratio K = actual time / planned time
- 5 points: K <= 0.70 (finished 30%+ faster than planned without hurting quality)
- 4 points: K = 0.71-1.00 (on time or slightly ahead)
- 3 points: K = 1.01-1.30 (minor overrun up to 30%, not critical)
- 2 points: K = 1.31-1.60 (significant overrun of 31-60%, affects other tasks)
- 1 point: K > 1.60 (critical overrun above 60%, deadline missed)

2. QUALITY SCORE (1-5):
- 5 points: 0 defects, 0 rework, accepted immediately, exceeds expectations
- 4 points: 1-2 minor remarks, fixed quickly (<10% of the time)
- 3 points: 3-5 defects, rework took 10-30% of the time, one revision round
- 2 points: >5 defects or critical ones, rework took 30-50% of the time, several rounds
- 1 point: critical defects, complete redo required (>50% of the time)

3. CONTEXTUAL ANALYSIS:
- Compare the current assessment against the performer's historical average
- Account for the performer's band (expert/professional/developing/problematic)
- Determine the trend: progress (+), stable (=), or regression (-)
- Expect more from experts; for developing performers, credit their progress

4. AI ESTIMATE OF OPTIMAL TIME:
- Analyze the task description and type
- Estimate how long this specific task SHOULD have taken a specialist of this level given all available details
- Compare with the planned time: was it realistic?
- Compare with the actual time: how efficiently did the performer work?

RESPONSE FORMAT:
Return strict JSON with the keys:
- "speed_score": integer 1-5
- "quality_score": integer 1-5
- "speed_reason": short justification (up to 30 words)
- "quality_reason": short justification (up to 30 words)
- "optimal_time_minutes": your estimate of the optimal time for this task
- "time_estimate_realistic": true/false, whether the planned time was realistic
- "context_adjustment": number from -1 to +1, recommended adjustment based on history
- "trend": "progress" / "stable" / "regression", relative to history
- "performer_level_match": true/false, whether the result matches the performer's level

Be objective, weigh every factor, and give constructive feedback.`

// promptInputs gathers everything the user message needs.
type promptInputs struct {
	task    models.Task
	summary string

	planned *int
	tracked *int

	assigneeName string
	assigneeRole string
	band         string
	avgSpeed     *float64
	avgQuality   *float64
	avgCombined  *float64
	historyLines []string

	now time.Time
}

func buildUserPrompt(in promptInputs) string {
	k := "not computed"
	if in.planned != nil && in.tracked != nil && *in.planned > 0 {
		k = fmt.Sprintf("%.2f", float64(*in.tracked)/float64(*in.planned))
	}

	priority := in.task.Priority
	if priority == "" {
		priority = "not specified"
	}

	historySection := ""
	if len(in.historyLines) > 0 {
		title := "PERFORMER HISTORY"
		if in.assigneeName != "" && in.assigneeName != "not specified" {
			title += " " + in.assigneeName
		}
		historySection = "\n\n" + title + " (for contextual adjustment):\n" + strings.Join(in.historyLines, "\n")
	}

	var b strings.Builder
	b.WriteString("TASK UNDER ASSESSMENT:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", in.task.Name)
	fmt.Fprintf(&b, "Description: %s\n", in.summary)
	fmt.Fprintf(&b, "Priority: %s\n\n", priority)

	b.WriteString("TIME METRICS:\n")
	fmt.Fprintf(&b, "Planned time (estimate): %s minutes\n", minutesOrUnknown(in.planned))
	fmt.Fprintf(&b, "Actual time (tracked): %s minutes\n", minutesOrUnknown(in.tracked))
	fmt.Fprintf(&b, "Ratio K: %s\n", k)
	fmt.Fprintf(&b, "Deadline: %s\n", formatDue(in.task.DueDate))
	fmt.Fprintf(&b, "Deadline status: %s\n\n", deadlineStatus(in.task, in.now))

	b.WriteString("QUALITY SIGNALS:\n")
	fmt.Fprintf(&b, "Comment count: %s\n", countOrUnknown(in.task.CommentCount))
	fmt.Fprintf(&b, "Activity count: %s\n\n", countOrUnknown(in.task.ActivityCount))

	b.WriteString("PERFORMER:\n")
	fmt.Fprintf(&b, "Name: %s\n", in.assigneeName)
	fmt.Fprintf(&b, "Role/specialization: %s\n", in.assigneeRole)
	fmt.Fprintf(&b, "Band: %s\n", in.band)
	fmt.Fprintf(&b, "Average historical score: %s\n", averageOrUnknown(in.avgCombined))
	fmt.Fprintf(&b, "Average speed score (history): %s\n", averageOrUnknown(in.avgSpeed))
	fmt.Fprintf(&b, "Average quality score (history): %s\n", averageOrUnknown(in.avgQuality))
	b.WriteString(historySection)

	b.WriteString("\n\nYOUR TASK:\n")
	b.WriteString("1. Score the SPEED of execution (1-5) from the ratio K and context\n")
	b.WriteString("2. Score the QUALITY of the result (1-5) from defects, rework and acceptance\n")
	b.WriteString("3. Determine the OPTIMAL TIME for this task in your professional judgment\n")
	b.WriteString("4. Judge whether the planned time was realistic\n")
	b.WriteString("5. Compare against the performer's history and determine the trend (progress/stable/regression)\n")
	b.WriteString("6. Propose a contextual adjustment (-1 to +1) based on history and the performer's band\n")
	b.WriteString("7. Judge whether the result matches the performer's level of professionalism\n\n")

	b.WriteString("Answer strictly in JSON format:\n")
	b.WriteString(`{
  "speed_score": 4,
  "quality_score": 5,
  "speed_reason": "Finished right on schedule (K=0.95), matching the plan...",
  "quality_reason": "Accepted on the first pass with no remarks, 0 defects...",
  "optimal_time_minutes": 180,
  "time_estimate_realistic": true,
  "context_adjustment": 0.3,
  "trend": "progress",
  "performer_level_match": true
}`)

	return b.String()
}

// historyLine renders one prior record for the performer-history section.
func historyLine(record models.HistoryRecord) string {
	speed := "?"
	if v, ok := NormalizeScore(record.Speed); ok {
		speed = fmt.Sprintf("%.2f", v)
	}
	quality := "?"
	if v, ok := NormalizeScore(record.Quality); ok {
		quality = fmt.Sprintf("%.2f", v)
	}
	name := record.TaskName
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("- %s: speed %s/5 (%s); quality %s/5 (%s)",
		name, speed, record.SpeedReason, quality, record.QualityReason)
}

// deadlineStatus classifies a task against its due date: closed tasks by
// their close instant, open ones against now.
func deadlineStatus(task models.Task, now time.Time) string {
	if task.DueDate == nil {
		return "not specified"
	}
	closed := task.DateClosed
	if closed == nil {
		closed = task.DateDone
	}
	if closed == nil {
		if !task.DueDate.Before(now) {
			return "on time"
		}
		return "overdue"
	}
	if !closed.After(*task.DueDate) {
		return "on time"
	}
	return "overdue"
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "not specified"
	}
	return due.UTC().Format(time.RFC3339)
}

func minutesOrUnknown(minutes *int) string {
	if minutes == nil {
		return "not specified"
	}
	return fmt.Sprintf("%d", *minutes)
}

func countOrUnknown(count *int) string {
	if count == nil {
		return "no data"
	}
	return fmt.Sprintf("%d", *count)
}

func averageOrUnknown(avg *float64) string {
	if avg == nil {
		return "no data"
	}
	return fmt.Sprintf("%.2f", *avg)
}

// truncateWords caps text at max words, leaving shorter text untouched.
func truncateWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}
