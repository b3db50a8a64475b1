package models

// SolveOptions tune a single completion call. Zero values fall back to the
// provider defaults.
type SolveOptions struct {
	StepByStep  bool    `json:"stepByStep"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type SolveRequest struct {
	Image   string       `json:"image"`
	Options SolveOptions `json:"options"`
	// ClientID is the relay connection id of the caller. It keys the answer
	// animation so a newer solve or a disconnect cancels what is still pending.
	ClientID string `json:"clientId,omitempty"`
}

type Step struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	FullText string `json:"fullText"`
}

// ToolCall mirrors the OpenAI tool call shape so it can be replayed verbatim.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Solution struct {
	Answer          string     `json:"answer"`
	ExtractedAnswer string     `json:"extractedAnswer"`
	Steps           []Step     `json:"steps"`
	ToolCalls       []ToolCall `json:"toolCalls"`
	TokensUsed      int        `json:"tokensUsed"`
	Model           string     `json:"model"`
}

type SolveResult struct {
	Success  bool     `json:"success"`
	Solution Solution `json:"solution"`
}

type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AnalyzeRequest struct {
	Image string `json:"image"`
}

type AnalyzeResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ImageSize int    `json:"imageSize"`
	Format    string `json:"format"`
	MIME      string `json:"mime,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}
