package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PathSample is one recorded trajectory in the path library.
type PathSample struct {
	Rows      int             `db:"rows" json:"rows"`
	Slot      int             `db:"slot" json:"slot"`
	Idx       int             `db:"idx" json:"idx"`
	Points    json.RawMessage `db:"points" json:"points"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// DropRecord is one settled drop.
type DropRecord struct {
	ID             int64           `db:"id" json:"id"`
	BoardID        string          `db:"board_id" json:"board_id"`
	Rows           int             `db:"rows" json:"rows"`
	Risk           string          `db:"risk" json:"risk"`
	Mode           string          `db:"mode" json:"mode"`
	Strategy       string          `db:"strategy" json:"strategy"`
	TargetSlot     sql.NullInt64   `db:"target_slot" json:"target_slot,omitempty"`
	Slot           int             `db:"slot" json:"slot"`
	Multiplier     decimal.Decimal `db:"multiplier" json:"multiplier"`
	BetAmount      decimal.Decimal `db:"bet_amount" json:"bet_amount"`
	Payout         decimal.Decimal `db:"payout" json:"payout"`
	Profit         decimal.Decimal `db:"profit" json:"profit"`
	Discrepancy    bool            `db:"discrepancy" json:"discrepancy"`
	Steps          int             `db:"steps" json:"steps"`
	ServerSeedHash sql.NullString  `db:"server_seed_hash" json:"server_seed_hash,omitempty"`
	ClientSeed     sql.NullString  `db:"client_seed" json:"client_seed,omitempty"`
	Nonce          sql.NullInt64   `db:"nonce" json:"nonce,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// AdminAccount is an operator allowed to manage the path library.
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName sql.NullString `db:"display_name" json:"display_name,omitempty"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	AllowedIPs  pq.StringArray `db:"allowed_ips" json:"allowed_ips"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit is one operator action.
type AdminAudit struct {
	ID            int             `db:"id" json:"id"`
	AdminUsername string          `db:"admin_username" json:"admin_username"`
	IP            sql.NullString  `db:"ip" json:"ip,omitempty"`
	Route         string          `db:"route" json:"route"`
	Action        string          `db:"action" json:"action"`
	Details       json.RawMessage `db:"details" json:"details"`
	Success       bool            `db:"success" json:"success"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// RuntimeConfig is an operator-editable setting that overrides env config.
type RuntimeConfig struct {
	Key         string         `db:"key" json:"key"`
	Value       string         `db:"value" json:"value"`
	ValueType   string         `db:"value_type" json:"value_type"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
