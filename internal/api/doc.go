// Package api serves the prediction pipeline over HTTP.
//
// # Routes
//
// POST /api/v1/predict: one record of the twelve audio features, returns the
// decoded genre with the training run that produced it.
//
// GET /api/v1/health: readiness of the servable artifact set.
//
// GET /metrics: Prometheus exposition.
//
// # Error Mapping
//
// Failures are classified by stage.Kind. Malformed bodies and missing fields
// are 400, a feature set that differs from training is 422, an absent or
// inconsistent artifact set is 503, everything else is 500. Every error body
// carries the request correlation ID also returned in X-Request-ID.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Feature fields are pointers so an explicit
// zero is distinguishable from an omitted value; validator's required tag
// rejects nil.
package api
