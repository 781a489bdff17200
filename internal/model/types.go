package model

import "time"

// PackageState is the server-authoritative lifecycle state of a package.
//
// The client never invents a state: states only change as an optimistic echo
// of a confirmed remote transition. See catalog.Transitions for the legal edges.
type PackageState string

const (
	StatePendingUnpaid PackageState = "pending_unpaid"
	StatePending       PackageState = "pending"
	StateSubmitted     PackageState = "submitted"
	StateInTransit     PackageState = "in_transit"
	StateDelivered     PackageState = "delivered"
	StateRejected      PackageState = "rejected"
	StateCollected     PackageState = "collected"
)

// ValidStates enumerates every known lifecycle state.
var ValidStates = []PackageState{
	StatePendingUnpaid,
	StatePending,
	StateSubmitted,
	StateInTransit,
	StateDelivered,
	StateRejected,
	StateCollected,
}

func (s PackageState) IsValid() bool {
	for _, v := range ValidStates {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further state-changing action exists for s.
func (s PackageState) IsTerminal() bool {
	return s == StateRejected || s == StateCollected
}

func (s PackageState) String() string { return string(s) }

// DeliveryType describes how a package reaches its receiver.
type DeliveryType string

const (
	DeliveryAgent      DeliveryType = "agent"      // pickup at an agent location
	DeliveryDoorstep   DeliveryType = "doorstep"   // rider hands over at the door
	DeliveryFragile    DeliveryType = "fragile"    // doorstep with handling constraints
	DeliveryCollection DeliveryType = "collection" // receiver collects from a hub
)

// ValidDeliveryTypes enumerates every known delivery type.
var ValidDeliveryTypes = []DeliveryType{
	DeliveryAgent,
	DeliveryDoorstep,
	DeliveryFragile,
	DeliveryCollection,
}

func (d DeliveryType) IsValid() bool {
	for _, v := range ValidDeliveryTypes {
		if d == v {
			return true
		}
	}
	return false
}

func (d DeliveryType) String() string { return string(d) }

// Role identifies the kind of operator performing a scan.
type Role string

const (
	RoleRider     Role = "rider"
	RoleAgent     Role = "agent"
	RoleWarehouse Role = "warehouse"
	RoleAdmin     Role = "admin"
	RoleClient    Role = "client"
	RoleCustomer  Role = "customer"
)

// ValidRoles enumerates every known operator role.
var ValidRoles = []Role{
	RoleRider,
	RoleAgent,
	RoleWarehouse,
	RoleAdmin,
	RoleClient,
	RoleCustomer,
}

func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// ActionType is a machine-readable scan action id.
type ActionType string

const (
	ActionPay               ActionType = "pay"
	ActionCollectFromSender ActionType = "collect_from_sender"
	ActionCollect           ActionType = "collect"
	ActionDeliver           ActionType = "deliver"
	ActionGiveToReceiver    ActionType = "give_to_receiver"
	ActionConfirmReceipt    ActionType = "confirm_receipt"
	ActionReject            ActionType = "reject"
	ActionProcess           ActionType = "process"
	ActionPrint             ActionType = "print"
)

func (a ActionType) String() string { return string(a) }

// Operator identifies who performed a scan. Supplied by an external
// identity collaborator; the engine only stamps it onto actions.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Metadata is the contextual bag attached to every scan action.
// Geolocation is optional; a nil Geo means the device had no fix.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Geo       *GeoPoint `json:"geo,omitempty"`
}

// GeoPoint is a WGS84 coordinate captured at scan time.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Party is a sender or receiver identity on a package.
type Party struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Snapshot is the last known, possibly stale, representation of a package.
//
// The resolved action set is deliberately NOT stored on the snapshot: legal
// actions are always recomputed from (state, role, delivery type) at the point
// of use. Caching a resolved action set alongside a snapshot invites the two
// drifting apart, which turns into illegal scans.
type Snapshot struct {
	Code         string       `json:"code"`
	State        PackageState `json:"state"`
	DeliveryType DeliveryType `json:"delivery_type"`
	Sender       Party        `json:"sender"`
	Receiver     Party        `json:"receiver"`
	Route        string       `json:"route"`
	CostCents    int64        `json:"cost_cents"`
	CreatedAt    time.Time    `json:"created_at"`
}

// PendingAction is a scan action waiting for the remote authority.
//
// Token is the client-generated idempotency token and the action's identity:
// the authority applies a token at most once, which is what makes replays and
// duplicate reconciliation sweeps safe. A pending action is never mutated
// after enqueue except for its attempt counter and needs-attention flag; it is
// deleted on acknowledgement or operator discard.
type PendingAction struct {
	Token          string     `json:"token"`
	Code           string     `json:"code"`
	Action         ActionType `json:"action"`
	Operator       Operator   `json:"operator"`
	Metadata       Metadata   `json:"metadata"`
	Seq            int64      `json:"seq"`
	QueuedAt       time.Time  `json:"queued_at"`
	Attempts       int        `json:"attempts"`
	NeedsAttention bool       `json:"needs_attention"`
}
