// Package agent builds the reasoning backend client: a raw provider client
// wrapped in the resilience and observability middleware chain.
//
// Provider implementations live under internal/llmimpl; callers only see
// llm.LLMClient.
package agent
