package models

// ChatRequest is the body posted to the chat endpoint
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the decoded body of a successful chat call
type ChatResponse struct {
	Response    string `json:"response"`
	ModelUsed   string `json:"model_used"`
	ContextUsed string `json:"context_used"`
}
