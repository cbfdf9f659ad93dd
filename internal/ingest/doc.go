// Package ingest accepts sensor readings from incubator boards.
//
// A reading passes through a fixed sequence: the shared ingest key is
// checked, the values are validated, the incubation is resolved, the
// reading is stored and broadcast, and each threshold violation becomes a
// stored alert that is broadcast and handed to the notification
// dispatcher. Steps after the insert never undo it.
//
// Readings arrive over HTTP (internal/api) or over MQTT on
// smartegg/sensor/{incubation_id}/reading; both enter through Pipeline.Ingest.
package ingest
