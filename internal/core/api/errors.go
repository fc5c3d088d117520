package api

// Error mapping is done inline in handlers.
// Validation errors map to 400.
// Unknown/foreign-tenant resources map to 404 without distinguishing the two.
// Lifecycle conflicts (double undo, elapsed window) map to 409.
// Database errors map to 503.
