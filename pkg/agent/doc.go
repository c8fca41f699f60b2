// Package agent builds the completion client every pipeline agent talks to.
//
// The raw provider client (internal/llmimpl) is wrapped in the resilience and
// observability middleware under middleware/. Agents only ever see the
// llm.LLMClient interface.
package agent
