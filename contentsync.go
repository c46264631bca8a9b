// Package contentsync clones CMS content into other languages and keeps
// translation groups in sync. It extracts translatable text from page-builder
// documents, translates it through an LLM, and splices the translations back
// into the same structural positions.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, wordpress/).
package contentsync
