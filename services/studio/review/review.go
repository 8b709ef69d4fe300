// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package review runs the adversarial review half of the
// developer/reviewer loop. A reviewer model examines a candidate
// change-set and either approves it or enumerates violations; the
// rejection text is handed verbatim to the next generation attempt,
// so it must stand on its own without referring to reviewer state.
package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyonworks/gamestudio/services/llm"
)

// ApprovalToken signals approval when it is the first word of the
// reviewer's response.
const ApprovalToken = "APPROVED"

const reviewerSystemPrompt = `You are a strict senior code reviewer. You will receive a task description and a candidate change-set of complete file contents.

Approve ONLY if every file is a complete, working rewrite that fulfills the task.

If you approve, respond with the single word APPROVED on the first line, optionally followed by a short note.

If you reject, do NOT use the word APPROVED. Instead list every violation as a bullet:
- quote the offending excerpt
- explain what is wrong
- state the concrete fix

Your feedback is given to the developer as-is. It must be self-contained prose; do not reference "the previous review" or anything the developer cannot see.

Always reject:
- placeholder or elided content ("rest of the code remains the same", ellipsis, summaries)
- partial or diff-style edits instead of complete files
- code that plainly does not implement the task`

// Verdict is the outcome of one review.
type Verdict struct {
	Approved bool

	// Feedback is the reviewer's full response. On rejection it is
	// carried verbatim into the next attempt's prompt.
	Feedback string
}

// Reviewer judges candidate change-sets with a generation model.
type Reviewer struct {
	client llm.LLMClient
}

// NewReviewer creates a Reviewer backed by client.
func NewReviewer(client llm.LLMClient) *Reviewer {
	return &Reviewer{client: client}
}

// Review submits a candidate change-set for an instruction and parses
// the verdict.
//
// # Inputs
//
//   - ctx: Bounds the model call.
//   - instructions: The task the candidate claims to implement.
//   - candidate: Serialized change-set, FILE blocks included.
//
// # Outputs
//
//   - Verdict: Approved when the response leads with the approval
//     token; otherwise rejected with the response as feedback.
//   - error: Non-nil when the model call itself fails.
func (r *Reviewer) Review(ctx context.Context, instructions, candidate string) (Verdict, error) {
	prompt := fmt.Sprintf("Task:\n%s\n\nCandidate change-set:\n%s", instructions, candidate)

	response, err := r.client.Generate(ctx, prompt, llm.GenerationParams{
		System:      reviewerSystemPrompt,
		Temperature: llm.Float32Ptr(0),
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("review call: %w", err)
	}

	return ParseVerdict(response), nil
}

// ParseVerdict interprets a raw reviewer response. Approval requires
// the approval token as the first word of the first non-blank line;
// the token appearing anywhere else (for example quoted inside
// rejection feedback) does not approve.
func ParseVerdict(response string) Verdict {
	trimmed := strings.TrimSpace(response)
	firstLine := trimmed
	if i := strings.IndexByte(trimmed, '\n'); i != -1 {
		firstLine = trimmed[:i]
	}
	fields := strings.Fields(firstLine)
	approved := len(fields) > 0 && fields[0] == ApprovalToken

	return Verdict{Approved: approved, Feedback: trimmed}
}
