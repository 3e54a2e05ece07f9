package models

import (
	"time"
)

// PlayerRecord is a single player row as it arrives from an upload or the
// intake topic. DOB is kept as the raw source string; parsing happens in the
// screening engine so unparseable dates still flow through.
type PlayerRecord struct {
	PlayerID  string `json:"player_id" db:"player_id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Postcode  string `json:"postcode" db:"postcode"`
	DOB       string `json:"dob" db:"dob"`
	Mobile    string `json:"mobile" db:"mobile"`
	Email     string `json:"email" db:"email"`
	Casino    string `json:"casino" db:"casino"`
	NetworkID string `json:"network_id" db:"network_id"`
}

// Player is a committed register row.
type Player struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	PlayerID    string     `json:"player_id" db:"player_id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	Postcode    string     `json:"postcode" db:"postcode"`
	DOB         string     `json:"dob" db:"dob"`
	Mobile      string     `json:"mobile" db:"mobile"`
	Email       string     `json:"email" db:"email"`
	Casino      string     `json:"casino" db:"casino"`
	NetworkID   string     `json:"network_id" db:"network_id"`
	Fingerprint string     `json:"fingerprint" db:"fingerprint"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Record returns the register row as a plain record for screening.
func (p *Player) Record() PlayerRecord {
	return PlayerRecord{
		PlayerID:  p.PlayerID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Postcode:  p.Postcode,
		DOB:       p.DOB,
		Mobile:    p.Mobile,
		Email:     p.Email,
		Casino:    p.Casino,
		NetworkID: p.NetworkID,
	}
}

// CreatePlayerRequest is the request for adding a single player to the register.
type CreatePlayerRequest struct {
	PlayerID  string `json:"player_id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Postcode  string `json:"postcode"`
	DOB       string `json:"dob" validate:"required"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email" validate:"omitempty,email"`
	Casino    string `json:"casino" validate:"required"`
	NetworkID string `json:"network_id"`
}

// PlayerListResponse is the response for listing register players
type PlayerListResponse struct {
	Items      []Player `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// IntakeMessage is an incoming registration batch from the intake topic.
type IntakeMessage struct {
	TenantID   string         `json:"tenant_id"`
	SourceName string         `json:"source_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Records    []PlayerRecord `json:"records"`
}
