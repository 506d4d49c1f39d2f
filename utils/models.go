package utils

import (
	"encoding/xml"
	"fmt"
	"time"
)

// TimeStampLayout is the layout the model is asked to use for Step.TimeStamp.
const TimeStampLayout = "2006-01-02T15:04:05-0700"

type Step struct {
	Speaker       string `json:"speaker" xml:"Speaker"`
	ActionSummary string `json:"actionSummary" xml:"ActionSummary"`
	ActionDetails string `json:"actionDetails" xml:"ActionDetails"`
	TimeStamp     string `json:"timeStamp" xml:"TimeStamp,attr" description:"timestamp in EDT timezone and in the following format %Y-%m-%dT%H:%M:%S%z"`
}

// Process is one extracted playbook.
type Process struct {
	Issue          string `json:"issue" xml:"Issue"`
	TicketNumber   string `json:"ticketNumber" xml:"TicketNumber"`
	TicketPlatform string `json:"ticketPlatform" xml:"TicketPlatform"`
	Actions        []Step `json:"actions" xml:"Actions>Step"`
}

type ProcessFeedback struct {
	Support         bool   `json:"support" xml:"Support" description:"Are all actions in the playbook in the video?"`
	Rating          int    `json:"rating" xml:"Rating" description:"Rating of the submitted playbook on scale 1 to 5. 5 means playbook is perfect and no change is needed, 1 is no use either due to wrong order of steps or hallucinated steps"`
	Recommendations string `json:"recommendations" xml:"Recommendations" description:"Recommendation for writer how to improve playbook"`
}

// Result pairs an extracted process with the critique the model gave it.
type Result struct {
	XMLName  xml.Name        `json:"-" xml:"Playbook"`
	Number   int             `json:"number" xml:"number,attr"`
	Process  Process         `json:"process" xml:"Process"`
	Feedback ProcessFeedback `json:"feedback" xml:"Feedback"`
}

// ValidationError reports a model response that does not satisfy the schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (s Step) Validate() error {
	if _, err := time.Parse(TimeStampLayout, s.TimeStamp); err != nil {
		return &ValidationError{Field: "timeStamp", Reason: fmt.Sprintf("%q does not match %s", s.TimeStamp, TimeStampLayout)}
	}
	return nil
}

func (p Process) Validate() error {
	for i, step := range p.Actions {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
	}
	return nil
}

func (f ProcessFeedback) Validate() error {
	if f.Rating < 1 || f.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("%d is outside 1..5", f.Rating)}
	}
	return nil
}

// Best returns the index of the highest rated result, preferring playbooks the
// reviewer marked as supported by the video. It returns -1 for an empty slice.
func Best(results []Result) int {
	best := -1
	for i, r := range results {
		if best < 0 {
			best = i
			continue
		}
		cur := results[best].Feedback
		if r.Feedback.Support != cur.Support {
			if r.Feedback.Support {
				best = i
			}
			continue
		}
		if r.Feedback.Rating > cur.Rating {
			best = i
		}
	}
	return best
}
