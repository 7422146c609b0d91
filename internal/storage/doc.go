// Package storage provides the persistence layer for the notification
// pipeline.
//
// It currently supports:
//   - The scheduled notification queue (with recurrence metadata)
//   - Per-item deadline reminder state
//   - A bounded notification history ring
//   - The notification preferences singleton
package storage
