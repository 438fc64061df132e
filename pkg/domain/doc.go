// Package domain holds the types shared across the operator:
// resolved dependency connections, durable completion flags,
// per-service plans and the coarse operator status.
//
// Values in this package are plain data. Persistence lives in
// pkg/domain/registry, behavior of each DataHub service lives in
// pkg/domain/service.
package domain
