package domain

import (
	"time"

	"github.com/google/uuid"
)

type GigStatus string

const (
	GigStatusActive   GigStatus = "ACTIVE"
	GigStatusPaused   GigStatus = "PAUSED"
	GigStatusInactive GigStatus = "INACTIVE"
)

// Package is one purchasable tier of a gig. Packages live inside the gig row
// as a JSON document and are selected by positional index at order time.
type Package struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	DeliveryDays int      `json:"deliveryDays"`
	Revisions    int      `json:"revisions,omitempty"`
	Features     []string `json:"features"`
}

// Gig is a freelancer-authored service listing with 1-3 fixed-price packages
// stored in ascending price order.
type Gig struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Deliverables []string  `json:"deliverables"`
	Packages     []Package `json:"packages"`
	Gallery      []string  `json:"gallery"`
	Tags         []string  `json:"tags"`
	FreelancerID uuid.UUID `json:"freelancerId"`
	CategoryID   uuid.UUID `json:"categoryId"`
	Status       GigStatus `json:"status"`
	Rating       float64   `json:"rating"`
	OrderCount   int       `json:"orderCount"`
	ViewCount    int       `json:"viewCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MinPrice returns the cheapest package price, or 0 for an empty catalog.
func (g *Gig) MinPrice() float64 {
	if len(g.Packages) == 0 {
		return 0
	}
	min := g.Packages[0].Price
	for _, p := range g.Packages[1:] {
		if p.Price < min {
			min = p.Price
		}
	}
	return min
}

// MaxPrice returns the most expensive package price, or 0 for an empty catalog.
func (g *Gig) MaxPrice() float64 {
	if len(g.Packages) == 0 {
		return 0
	}
	max := g.Packages[0].Price
	for _, p := range g.Packages[1:] {
		if p.Price > max {
			max = p.Price
		}
	}
	return max
}

// MinDelivery returns the shortest package delivery time in days.
func (g *Gig) MinDelivery() int {
	if len(g.Packages) == 0 {
		return 0
	}
	min := g.Packages[0].DeliveryDays
	for _, p := range g.Packages[1:] {
		if p.DeliveryDays < min {
			min = p.DeliveryDays
		}
	}
	return min
}
