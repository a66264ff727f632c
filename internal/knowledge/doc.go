// Package knowledge loads per-city knowledge documents and binds them into
// immutable model.Context values.
//
// A Binder never reads files itself: sources (FileSource, MapSource) supply
// raw text, the Binder validates it against the city registry and computes
// the fingerprint. Sections and Retrieve rank a context's markdown sections
// against a query so prompts can lead with the most relevant material.
package knowledge
