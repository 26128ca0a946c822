package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytb/internal/shared"
)

// ActionType identifies the kind of bulk mutation an Action performed.
type ActionType string

const (
	ActionAdd    ActionType = "ADD"
	ActionRemove ActionType = "REMOVE"
	ActionMove   ActionType = "MOVE"
)

// ActionStatus is the finalized state of an Action, derived from its items.
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionSuccess ActionStatus = "success"
	ActionPartial ActionStatus = "partial"
	ActionFailed  ActionStatus = "failed"
)

// ItemStatus is the outcome of one targeted playlist entry.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
	ItemSkipped ItemStatus = "skipped"
)

// Action records one bulk mutation submission.
type Action struct {
	ID        string       `json:"id"`
	Sequence  int          `json:"-"`
	Type      ActionType   `json:"type"`
	UserID    string       `json:"userId"`
	Status    ActionStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ActionItem records the outcome of one targeted entry within an Action.
// Items are appended during orchestration and never mutated afterwards.
type ActionItem struct {
	ID                   int64      `json:"-"`
	ActionID             string     `json:"-"`
	Position             int        `json:"position"`
	Type                 ActionType `json:"type"`
	Status               ItemStatus `json:"status"`
	VideoID              string     `json:"videoId,omitempty"`
	SourcePlaylistItemID string     `json:"sourcePlaylistItemId,omitempty"`
	TargetPlaylistItemID string     `json:"targetPlaylistItemId,omitempty"`
	ErrorMessage         string     `json:"errorMessage,omitempty"`
	CreatedAt            time.Time  `json:"-"`
}

// ActionSummary bundles an Action with its recorded items.
type ActionSummary struct {
	Action Action       `json:"action"`
	Items  []ActionItem `json:"items"`
}

// ItemRef identifies one playlist entry targeted by a remove or move operation.
type ItemRef struct {
	PlaylistItemID string `json:"playlistItemId"`
	VideoID        string `json:"videoId"`
}

// AddPayload requests insertion of videos into a playlist.
type AddPayload struct {
	PlaylistID     string   `json:"playlistId"`
	VideoIDs       []string `json:"videoIds"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
}

// Validate checks the payload before any side effect occurs.
func (p AddPayload) Validate() error {
	if p.PlaylistID == "" {
		return fmt.Errorf("%w: playlistId is required", shared.ErrInvalidInput)
	}
	if len(p.VideoIDs) == 0 {
		return fmt.Errorf("%w: videoIds must not be empty", shared.ErrInvalidInput)
	}
	for i, id := range p.VideoIDs {
		if id == "" {
			return fmt.Errorf("%w: videoIds[%d] is empty", shared.ErrInvalidInput, i)
		}
	}
	return nil
}

// RemovePayload requests deletion of playlist items.
type RemovePayload struct {
	Items          []ItemRef `json:"items"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

// Validate checks the payload before any side effect occurs.
func (p RemovePayload) Validate() error {
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", shared.ErrInvalidInput)
	}
	for i, item := range p.Items {
		if item.PlaylistItemID == "" {
			return fmt.Errorf("%w: items[%d].playlistItemId is empty", shared.ErrInvalidInput, i)
		}
	}
	return nil
}

// MovePayload requests relocation of playlist items into another playlist.
type MovePayload struct {
	Items            []ItemRef `json:"items"`
	TargetPlaylistID string    `json:"targetPlaylistId"`
	IdempotencyKey   string    `json:"idempotencyKey,omitempty"`
}

// Validate checks the payload before any side effect occurs.
func (p MovePayload) Validate() error {
	if p.TargetPlaylistID == "" {
		return fmt.Errorf("%w: targetPlaylistId is required", shared.ErrInvalidInput)
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", shared.ErrInvalidInput)
	}
	for i, item := range p.Items {
		if item.PlaylistItemID == "" {
			return fmt.Errorf("%w: items[%d].playlistItemId is empty", shared.ErrInvalidInput, i)
		}
		if item.VideoID == "" {
			return fmt.Errorf("%w: items[%d].videoId is empty", shared.ErrInvalidInput, i)
		}
	}
	return nil
}

// CreatedItem is one successfully inserted playlist entry in an AddResult.
type CreatedItem struct {
	PlaylistItemID string `json:"playlistItemId"`
	VideoID        string `json:"videoId"`
}

// AddResult is the typed response of a bulk add.
type AddResult struct {
	Action         ActionSummary `json:"action"`
	Created        []CreatedItem `json:"created"`
	EstimatedQuota int           `json:"estimatedQuota"`
	Idempotent     bool          `json:"idempotent"`
}

// RemoveResult is the typed response of a bulk remove.
type RemoveResult struct {
	Action         ActionSummary `json:"action"`
	Removed        int           `json:"removed"`
	Failed         int           `json:"failed"`
	EstimatedQuota int           `json:"estimatedQuota"`
	Idempotent     bool          `json:"idempotent"`
}

// MovedItem describes one entry whose delete and insert legs both succeeded.
type MovedItem struct {
	From    ItemEndpoint `json:"from"`
	To      ItemEndpoint `json:"to"`
	VideoID string       `json:"videoId"`
}

// ItemEndpoint is one side of a move.
type ItemEndpoint struct {
	PlaylistItemID string `json:"playlistItemId"`
}

// MoveResult is the typed response of a bulk move.
type MoveResult struct {
	Action         ActionSummary `json:"action"`
	Moved          []MovedItem   `json:"moved"`
	EstimatedQuota int           `json:"estimatedQuota"`
	Idempotent     bool          `json:"idempotent"`
}

// Account holds a user's stored OAuth credentials for the remote provider.
type Account struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"-"`
	DisplayName  string    `json:"displayName"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// QuotaSnapshot reports today's usage against the daily budget.
type QuotaSnapshot struct {
	Used    int       `json:"used"`
	Remain  int       `json:"remain"`
	Budget  int       `json:"budget"`
	ResetAt time.Time `json:"resetAt"`
}
