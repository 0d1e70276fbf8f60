package types

// ResumeRequest is one tailoring submission. It is built per submit and
// consumed once by the prompt builder.
type ResumeRequest struct {
	OriginalResume string `json:"originalResume"`
	JobDescription string `json:"jobDescription"`
	CareerStart    string `json:"careerStartDate,omitempty"`
}

// TokenUsage mirrors the usage metadata returned by the model.
type TokenUsage struct {
	PromptTokens     int32 `json:"promptTokens"`
	CandidatesTokens int32 `json:"candidatesTokens"`
	TotalTokens      int32 `json:"totalTokens"`
}

// Generation is the cleaned model output for one prompt.
type Generation struct {
	Text  string      `json:"text"`
	Model string      `json:"model"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// TailorResult is what the CLI and the JSON API return for a tailoring run.
type TailorResult struct {
	TailoredResume  string      `json:"tailoredResume"`
	Model           string      `json:"model"`
	ExperienceYears *int        `json:"experienceYears,omitempty"`
	Usage           *TokenUsage `json:"usage,omitempty"`
}

// ExtractResult describes the outcome of a document extraction.
type ExtractResult struct {
	FileName  string `json:"fileName"`
	MediaType string `json:"mediaType"`
	Text      string `json:"text"`
	Empty     bool   `json:"empty"`
	Notice    string `json:"notice,omitempty"`
}

// PromptPreview is the rendered prompt of a dry run, nothing is sent.
type PromptPreview struct {
	Prompt          string `json:"prompt"`
	ExperienceYears *int   `json:"experienceYears,omitempty"`
	Characters      int    `json:"characters"`
}
