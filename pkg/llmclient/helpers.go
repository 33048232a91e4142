// Copyright 2025 KrakLabs
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
//
// SPDX-License-Identifier: Apache-2.0

package llmclient

import (
	"os"
)

// DefaultProvider creates a provider from environment variables, checking
// in order: OLLAMA_HOST/OLLAMA_MODEL, OPENAI_API_KEY, ANTHROPIC_API_KEY.
// Falls back to the mock provider if nothing is configured.
func DefaultProvider() (Provider, error) {
	if os.Getenv("OLLAMA_HOST") != "" || os.Getenv("OLLAMA_BASE_URL") != "" || os.Getenv("OLLAMA_MODEL") != "" {
		return NewProvider(ProviderConfig{Type: "ollama"})
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return NewProvider(ProviderConfig{Type: "openai"})
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return NewProvider(ProviderConfig{Type: "anthropic"})
	}
	return NewProvider(ProviderConfig{Type: "mock"})
}

// BuildChatMessages assembles a chat message array from a system
// prompt, optional prior turns, and the current user prompt. Used by
// Client.complete to build every ChatRequest's Messages field.
func BuildChatMessages(systemPrompt, userPrompt string, history ...Message) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userPrompt})
	return messages
}
