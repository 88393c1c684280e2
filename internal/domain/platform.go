package domain

import "time"

// Platform is one registered tenant: a branded trading front-end whose
// attributed wallet generates the fills this service ingests.
type Platform struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	OwnerUserID   string    `json:"owner_user_id"`
	WalletAddress string    `json:"wallet_address"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}
