// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"context"

	"github.com/poiesic/ponderosa/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
//
// The underlying client is constructed lazily on the first Complete call and
// cached for the lifetime of the ChatModel. The two states (uninitialized /
// initialized-with-handle) are guarded by initOnce.
type ChatModel struct {
	config      *ai.Config
	temperature float64
	limiter     *rate.Limiter
	logger      *slog.Logger

	initOnce sync.Once
	client   llms.Model
	initErr  error
}

// newChatModel is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}

	return &ChatModel{
		config:      config,
		temperature: config.Temperature,
		limiter:     limiter,
		logger:      slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a new chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// handle returns the lazily initialized client, constructing it on first use.
func (m *ChatModel) handle() (llms.Model, error) {
	m.initOnce.Do(func() {
		m.logger.Debug("initializing chat client",
			"host", m.config.ChatHost,
			"model", m.config.ChatModel)
		m.client, m.initErr = openai.New(
			openai.WithBaseURL(m.config.ChatHost),
			openai.WithToken(m.config.APIKey),
			openai.WithModel(m.config.ChatModel),
		)
	})
	return m.client, m.initErr
}

// Complete invokes the model with the given system instruction and messages
// and returns the raw response text. No streaming, no tool use.
func (m *ChatModel) Complete(ctx context.Context, system string, messages []ai.Message) (string, error) {
	client, err := m.handle()
	if err != nil {
		return "", err
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	content := make([]llms.MessageContent, 0, len(messages)+1)
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(system)},
	})
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		if msg.Role == ai.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	response, err := client.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		m.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		m.logger.Debug("no choices returned from model")
		return "", errors.New("model returned no choices")
	}

	return response.Choices[0].Content, nil
}
