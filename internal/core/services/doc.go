// Package services implements the driving ports on top of the driven ones.
//
// A question flows through IngestionService (extract, chunk, embed, upsert
// once per document), QueryRewriter (history-aware standalone query) and
// RAGService (embed, retrieve top-K, synthesise). ChatService wraps the
// pipeline with the chat log: it records the human turn, answers from the
// history that precedes it, then records the assistant turn.
//
// Provider calls go through callWithRetry, which applies the configured
// per-attempt timeout and exponential backoff.
package services
