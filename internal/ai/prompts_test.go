package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"resumetailor/internal/types"
)

var promptNow = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestBuildTailorPromptEmbedsInputsVerbatim(t *testing.T) {
	tests := []struct {
		name   string
		resume string
		job    string
	}{
		{"simple", "Jane Doe\nGo developer", "Senior Go Engineer"},
		{"whitespace preserved", "  leading\n\ttabs\n\ntrailing  \n", "\n\nJob\n"},
		{"unicode", "Zoë Ångström • Café ☕", "Développeur — Paris"},
		{"template-looking text", "${contextualInfo} {{.Resume}} %s", "**Task:** none"},
		{"empty strings", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildTailorPrompt(types.ResumeRequest{
				OriginalResume: tt.resume,
				JobDescription: tt.job,
			}, promptNow)

			assert.Contains(t, prompt, "**Original Resume:**\n```\n"+tt.resume+"\n```\n")
			assert.Contains(t, prompt, "**Job Description:**\n```\n"+tt.job+"\n```\n")
		})
	}
}

func TestBuildTailorPromptStructure(t *testing.T) {
	prompt := BuildTailorPrompt(types.ResumeRequest{
		OriginalResume: "R",
		JobDescription: "J",
	}, promptNow)

	assert.True(t, strings.HasPrefix(prompt, "\nYou are an expert resume writer and ATS (Applicant Tracking System) optimization specialist AI.\n"))
	assert.True(t, strings.HasSuffix(prompt, "**Task:**\nGenerate the ATS-optimized, job-tailored resume.\n"))

	order := []string{
		"**Overall Goal:**",
		"**Contextual Information (Use this to shape the narrative):**",
		"**Detailed Guidelines:**",
		"**I. ATS Optimization (CRITICAL FOR SUCCESS):**",
		"**II. Content Tailoring and Enhancement (Primary Objective):**",
		"**III. Formatting Style Preservation",
		"**Crucial Instructions:**",
		"**Inputs:**",
		"**Original Resume:**",
		"**Job Description:**",
		"**Task:**",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(prompt, marker)
		if assert.GreaterOrEqual(t, idx, 0, marker) {
			assert.Greater(t, idx, last, "%q out of order", marker)
			last = idx
		}
	}

	assert.Contains(t, prompt, "**Output ONLY the tailored resume text.**")
}

func TestBuildTailorPromptContextualInformation(t *testing.T) {
	tests := []struct {
		name        string
		careerStart string
		want        string
	}{
		{
			name:        "not provided",
			careerStart: "",
			want: "**Contextual Information (Use this to shape the narrative):**\n" +
				"*   **Career Start Date:** Not provided.\n" +
				"*   **Approximate Years of Experience:** Not applicable (no start date provided).\n" +
				"\n\n**Detailed Guidelines:**",
		},
		{
			name:        "month and year",
			careerStart: "05/2018",
			want: "*   **Career Start Date Provided:** 05/2018\n" +
				"*   **Approximate Years of Experience:** 7 years (approx.)\n" +
				"\n\n**Detailed Guidelines:**",
		},
		{
			name:        "single year of experience",
			careerStart: "2024",
			want:        "*   **Approximate Years of Experience:** 1 year (approx.)\n",
		},
		{
			name:        "unparseable",
			careerStart: "abcd",
			want:        "(Could not reliably calculate years of experience from input: 'abcd')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildTailorPrompt(types.ResumeRequest{
				OriginalResume: "R",
				JobDescription: "J",
				CareerStart:    tt.careerStart,
			}, promptNow)
			assert.Contains(t, prompt, tt.want)
		})
	}
}
