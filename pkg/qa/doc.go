// Package qa implements the QA formatter and evaluator (spec §4.8): a
// chat prompt built from retrieved passages, dataset-specific chat
// templates with a fallback default, tolerant answer parsing, and
// ExactMatch/F1 scoring against gold aliases.
package qa
