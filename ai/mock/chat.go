package mock

import (
	"context"

	"github.com/poiesic/ponderosa/ai"
)

// MockChatModel is a test double for ai.ChatModel.
// It allows custom behavior injection via function fields or a queue of
// canned responses consumed in order.
type MockChatModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, queued responses are returned in order; when the queue is
	// exhausted the default response is returned.
	CompleteFunc func(ctx context.Context, system string, messages []ai.Message) (string, error)

	// DefaultResponse is returned when no function and no queued response apply.
	DefaultResponse string

	queue     []queued
	callCount int

	// Calls records the system and messages of every invocation for
	// prompt-stability assertions.
	Calls []RecordedCall
}

type queued struct {
	response string
	err      error
}

// RecordedCall captures the arguments of one Complete invocation.
type RecordedCall struct {
	System   string
	Messages []ai.Message
}

// NewMockChatModel creates a mock chat model.
// Note: Returns concrete type to allow test assertions.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{
		DefaultResponse: `{"episode_title":"","summary":"","themes":[],"learnings":[],"strategies":[]}`,
	}
}

// QueueResponse appends a successful response to the queue.
func (m *MockChatModel) QueueResponse(response string) *MockChatModel {
	m.queue = append(m.queue, queued{response: response})
	return m
}

// QueueError appends a failing call to the queue.
func (m *MockChatModel) QueueError(err error) *MockChatModel {
	m.queue = append(m.queue, queued{err: err})
	return m
}

// Complete returns the next queued response, or delegates to CompleteFunc.
func (m *MockChatModel) Complete(ctx context.Context, system string, messages []ai.Message) (string, error) {
	m.callCount++
	m.Calls = append(m.Calls, RecordedCall{System: system, Messages: messages})

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, messages)
	}

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next.response, next.err
	}

	return m.DefaultResponse, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}

// Reset clears the call count, recorded calls, queue, and custom functions.
func (m *MockChatModel) Reset() {
	m.callCount = 0
	m.Calls = nil
	m.queue = nil
	m.CompleteFunc = nil
}
