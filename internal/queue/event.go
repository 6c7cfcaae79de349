// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair moving them.
package queue

// ReviewPostedEvent is published when a review is successfully added or
// edited. It carries enough information for downstream consumers to log or
// trigger analytics without querying the primary database.
type ReviewPostedEvent struct {
	Action       string `json:"action"` // "added" or "edited"
	UserID       uint64 `json:"user_id"`
	RestaurantID uint64 `json:"restaurant_id"`
	Stars        int    `json:"stars"`
	Text         string `json:"text"`
	PostedAt     string `json:"posted_at"`
}
