package domain

import "github.com/google/uuid"

// Candidate is a courier found near a pickup point.
type Candidate struct {
	CourierID      int64
	DistanceMeters float64
}

// RankedCandidate is a scored candidate.
type RankedCandidate struct {
	Candidate
	Score float64
}

// Offer is the best-effort notification pushed to a ranked courier.
type Offer struct {
	JobID          uuid.UUID `json:"job_id"`
	CourierID      int64     `json:"courier_id"`
	Payout         string    `json:"payout"`
	DistanceMeters float64   `json:"distance_m"`
	Priority       Priority  `json:"priority"`
	Rank           int       `json:"rank"`
}
