// Package models defines domain entities and payload types for the ytb bulk mutation service.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: Database-backed records written by the action log
//   - [Action] : One bulk mutation submission with a derived final status
//   - [ActionItem] : The outcome of one targeted playlist entry within an Action
//
// 2. Payloads and Results: Typed request/response shapes for the bulk operations
//   - [AddPayload] / [AddResult] : Insert videos into a playlist
//   - [RemovePayload] / [RemoveResult] : Delete playlist items
//   - [MovePayload] / [MoveResult] : Relocate items into another playlist
//   - [QuotaSnapshot] : Today's usage against the daily budget
//
// Payload types validate themselves before any side effect occurs.
package models
