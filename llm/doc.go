// Package llm is the boundary to the external text-generation
// capability. The pipeline consumes the Capability interface only; an
// OpenAI-compatible HTTP client and a resilience decorator (timeout,
// bounded retries, rate limiting) are provided. Errors never escape this
// boundary raw — callers receive a typed, classified error and convert
// it to degraded worker output.
package llm
