package model

import (
	"sort"
	"time"
)

// Show represents one scheduled screening of a movie.  Seat occupancy is
// stored inline with the show so a hold or release is a single row write
// guarded by Version.
//
// Fields:
//  ID            – UUID primary key.
//  MovieID       – id of the movie in the external catalog.
//  MovieTitle    – title copied from the catalog when the show was added.
//  StartsAt      – when the show begins (UTC).
//  PriceCents    – price of one seat; JSON carries it in major units.
//  OccupiedSeats – seat label → id of the booking holding it.  A label that
//                  is absent is available.
//  Version       – incremented on every occupancy write; writers must
//                  present the version they read.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Show struct {
	ID            string            `json:"id"`            // shows.id
	MovieID       string            `json:"movieId"`       // shows.movie_id
	MovieTitle    string            `json:"movieTitle"`    // shows.movie_title
	StartsAt      time.Time         `json:"showDateTime"`  // shows.starts_at
	PriceCents    Cents             `json:"showPrice"`     // shows.price_cents
	OccupiedSeats map[string]string `json:"-"`             // shows.occupied_seats (JSON)
	Version       int64             `json:"-"`             // shows.version
	CreatedAt     time.Time         `json:"createdAt"`     // shows.created_at
	UpdatedAt     time.Time         `json:"updatedAt"`     // shows.updated_at
}

// HasStarted reports whether the show's start time is at or before now.
func (s *Show) HasStarted(now time.Time) bool {
	return !now.Before(s.StartsAt)
}

// OccupiedLabels returns the occupied seat labels in grid order.
func (s *Show) OccupiedLabels() []string {
	out := make([]string, 0, len(s.OccupiedSeats))
	for label := range s.OccupiedSeats {
		out = append(out, label)
	}
	SortSeatLabels(out)
	return out
}

// Clone returns a deep copy so callers can mutate occupancy without touching
// the original.
func (s *Show) Clone() *Show {
	cp := *s
	cp.OccupiedSeats = make(map[string]string, len(s.OccupiedSeats))
	for k, v := range s.OccupiedSeats {
		cp.OccupiedSeats[k] = v
	}
	return &cp
}

// SortSeatLabels orders labels by row then seat number (A2 before A10).
// Labels that do not parse sort after valid ones, lexically.
func SortSeatLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		ri, ci, oki := ParseSeatLabel(labels[i])
		rj, cj, okj := ParseSeatLabel(labels[j])
		switch {
		case oki && okj:
			if ri != rj {
				return ri < rj
			}
			return ci < cj
		case oki != okj:
			return oki
		default:
			return labels[i] < labels[j]
		}
	})
}
