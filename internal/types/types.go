// Package types holds the JSON bodies of the widget HTTP API.
package types

import (
	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/render"
)

type ChatRequest struct {
	Message string `json:"message"`
}

// SelectRequest carries a date picker choice or a leave type option.
type SelectRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// BalanceRequest asks for a balance; a nil LeaveType shows the type picker.
type BalanceRequest struct {
	LeaveType *string `json:"leaveType,omitempty"`
}

type MessageView struct {
	Message conversation.Message `json:"message"`
	View    render.View          `json:"view"`
}

// ChatResponse lists the messages appended by one request, or the whole
// transcript for GET /api/transcript.
type ChatResponse struct {
	SessionID string            `json:"sessionId"`
	Step      conversation.Step `json:"step"`
	Messages  []MessageView     `json:"messages"`
}

type QuickActionsResponse struct {
	Welcome        prompts.Welcome       `json:"welcome"`
	QuickActions   []prompts.QuickAction `json:"quickActions"`
	BalanceOptions []prompts.Option      `json:"balanceOptions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
