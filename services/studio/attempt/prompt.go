// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attempt

import (
	"strings"

	"github.com/halcyonworks/gamestudio/services/studio/repofiles"
)

const developerSystemPrompt = `You are an expert software developer. When modifying files:

1. COPY THE ENTIRE FILE LINE BY LINE:
   - Start with the very first line of the file
   - Copy each line exactly as it appears
   - Continue until you reach the very last line
   - Do not skip any lines
   - Do not summarize any sections
   - Do not use placeholders or comments like "existing code here" or "this stays the same"

2. MAKE YOUR CHANGES:
   - Only modify the specific lines that need to change
   - Keep all other lines exactly as they are
   - Do not add comments about unchanged sections
   - Do not use ellipsis to skip code

3. FORMAT YOUR RESPONSE:
FILE:path/to/file
` + "```language" + `
<ENTIRE FILE CONTENT FROM FIRST LINE TO LAST LINE>
` + "```" + `

The output must be an EXACT copy of the original file with ONLY your specific changes applied. Every single line must be present.`

const feedbackHeader = "=== REVIEWER FEEDBACK ON YOUR PREVIOUS ATTEMPT ==="
const feedbackFooter = "=== END REVIEWER FEEDBACK ==="

// buildPrompt assembles the generation prompt: task instructions,
// repository documentation, repository code, and on retries the prior
// rejection feedback as its own delimited section.
func buildPrompt(instructions string, repoCtx repofiles.Context, feedback string) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(instructions)
	b.WriteString("\n\nRepository Documentation:\n-----------------------\n")
	for _, f := range repoCtx.Docs {
		writeFileSection(&b, f)
	}
	b.WriteString("\nRepository Code Structure:\n-------------------------\n")
	for _, f := range repoCtx.Code {
		writeFileSection(&b, f)
	}

	if feedback != "" {
		b.WriteString("\n")
		b.WriteString(feedbackHeader)
		b.WriteString("\n")
		b.WriteString(feedback)
		b.WriteString("\n")
		b.WriteString(feedbackFooter)
		b.WriteString("\nAddress every point above in this attempt.\n")
	}

	b.WriteString("\n\nPlease implement the requested changes following the project's conventions. Return only the file changes needed.")
	return b.String()
}

func writeFileSection(b *strings.Builder, f repofiles.File) {
	b.WriteString("\nFile: ")
	b.WriteString(f.Path)
	b.WriteString("\n```\n")
	b.WriteString(f.Content)
	b.WriteString("\n```\n")
}
