// Package lm manages the language-model backend.
//
// A Manager holds at most one active Client, installed by an explicit
// configure request or implicitly from the GEMINI_API_KEY environment
// variable on first use. Configuration walks an ordered list of model-id
// strategies and installs the first client that builds; a total failure
// reports every attempted strategy in one error.
//
// The concrete backend is an OpenAI-compatible chat-completions client.
// Google AI Studio's compatibility endpoint serves the Gemini models this
// bridge targets by default; BaseURL redirects to any other compatible
// gateway. Calls are rate limited and retried on transient failures.
package lm
