// Package alert classifies sensor readings against an incubation's safe
// ranges and stores the resulting alerts.
//
// Evaluate is pure: it returns drafts and never touches storage. Callers
// persist each draft with Repository.Create, then broadcast and dispatch
// the stored Alert. Every out-of-range reading produces fresh drafts; there
// is no deduplication and no hysteresis.
package alert
