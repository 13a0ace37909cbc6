package docintel

import "fmt"

// SubmissionError reports a non-success response to an analysis submission.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("document submission rejected: status %d: %s", e.StatusCode, e.Body)
}

// AnalysisError is a terminal failure reported by the analysis service for a
// single document. It is not retried.
type AnalysisError struct {
	RequestID string
	Code      string
	Message   string
}

func (e *AnalysisError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("analysis failed for request %s: %s: %s", e.RequestID, e.Code, e.Message)
	}
	return fmt.Sprintf("analysis failed for request %s: %s", e.RequestID, e.Message)
}

// PollTimeoutError means a job never reached a terminal status within the
// attempt budget.
type PollTimeoutError struct {
	RequestID string
	Attempts  int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("analysis result for request %s not ready after %d attempts", e.RequestID, e.Attempts)
}
