// Package catalog is the single source of truth for the package lifecycle
// state machine and for which operator roles may trigger which scan actions.
//
// Resolution is a pure function: no I/O, deterministic output order, and total
// over its inputs. Unknown states, roles, or delivery types resolve to the
// empty set rather than an error, so a newer server enum never crashes an
// older device.
package catalog

import "github.com/juakali/scanflow/internal/model"

// ActionDescriptor describes one legal action for presentation to an operator.
type ActionDescriptor struct {
	ID          model.ActionType `json:"id"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
}

// Transition is one edge of the lifecycle state machine, together with the
// roles and delivery types permitted to trigger it. A nil DeliveryTypes means
// the edge applies to every delivery type. From == To marks a side-effecting
// action with no state change.
type Transition struct {
	Action        model.ActionType
	From          model.PackageState
	To            model.PackageState
	Roles         []model.Role
	DeliveryTypes []model.DeliveryType
}

// transitions holds every documented edge, in resolution order.
//
// ORDER MATTERS: Resolve returns actions in this declaration order, so the
// operator-facing list is stable across devices and releases.
var transitions = []Transition{
	{
		Action: model.ActionPay,
		From:   model.StatePendingUnpaid,
		To:     model.StatePending,
		Roles:  []model.Role{model.RoleClient, model.RoleCustomer},
	},
	{
		Action: model.ActionCollectFromSender,
		From:   model.StatePending,
		To:     model.StateSubmitted,
		Roles:  []model.Role{model.RoleRider, model.RoleAgent, model.RoleWarehouse, model.RoleAdmin},
	},
	{
		Action: model.ActionCollect,
		From:   model.StateSubmitted,
		To:     model.StateInTransit,
		Roles:  []model.Role{model.RoleRider, model.RoleAgent, model.RoleWarehouse, model.RoleAdmin},
	},
	{
		Action:        model.ActionDeliver,
		From:          model.StateInTransit,
		To:            model.StateDelivered,
		Roles:         []model.Role{model.RoleRider},
		DeliveryTypes: []model.DeliveryType{model.DeliveryDoorstep, model.DeliveryFragile, model.DeliveryCollection},
	},
	{
		Action: model.ActionDeliver,
		From:   model.StateInTransit,
		To:     model.StateDelivered,
		Roles:  []model.Role{model.RoleAgent, model.RoleAdmin},
	},
	{
		Action: model.ActionGiveToReceiver,
		From:   model.StateInTransit,
		To:     model.StateCollected,
		Roles:  []model.Role{model.RoleRider, model.RoleAgent, model.RoleAdmin},
	},
	{
		Action: model.ActionGiveToReceiver,
		From:   model.StateDelivered,
		To:     model.StateCollected,
		Roles:  []model.Role{model.RoleRider, model.RoleAgent, model.RoleAdmin},
	},
	{
		Action: model.ActionConfirmReceipt,
		From:   model.StateDelivered,
		To:     model.StateCollected,
		Roles:  []model.Role{model.RoleClient, model.RoleCustomer, model.RoleAgent},
	},
	{
		Action: model.ActionReject,
		From:   model.StateInTransit,
		To:     model.StateRejected,
		Roles:  []model.Role{model.RoleRider, model.RoleAgent, model.RoleAdmin},
	},
	{
		Action: model.ActionProcess,
		From:   model.StateSubmitted,
		To:     model.StateSubmitted,
		Roles:  []model.Role{model.RoleWarehouse, model.RoleAdmin},
	},
	{
		Action: model.ActionProcess,
		From:   model.StateInTransit,
		To:     model.StateInTransit,
		Roles:  []model.Role{model.RoleWarehouse, model.RoleAdmin},
	},
	{
		Action: model.ActionPrint,
		From:   model.StateSubmitted,
		To:     model.StateSubmitted,
		Roles:  []model.Role{model.RoleAgent, model.RoleWarehouse, model.RoleAdmin},
	},
	{
		Action: model.ActionPrint,
		From:   model.StateInTransit,
		To:     model.StateInTransit,
		Roles:  []model.Role{model.RoleAgent, model.RoleWarehouse, model.RoleAdmin},
	},
	{
		Action: model.ActionPrint,
		From:   model.StateDelivered,
		To:     model.StateDelivered,
		Roles:  []model.Role{model.RoleAgent, model.RoleWarehouse, model.RoleAdmin},
	},
}

// descriptors maps each action id to its operator-facing label and description.
var descriptors = map[model.ActionType]ActionDescriptor{
	model.ActionPay: {
		ID:          model.ActionPay,
		Label:       "Pay for package",
		Description: "Trigger payment so the package enters the delivery flow",
	},
	model.ActionCollectFromSender: {
		ID:          model.ActionCollectFromSender,
		Label:       "Collect from sender",
		Description: "Pick the package up from the sender",
	},
	model.ActionCollect: {
		ID:          model.ActionCollect,
		Label:       "Collect for transit",
		Description: "Take the package into transit toward its destination",
	},
	model.ActionDeliver: {
		ID:          model.ActionDeliver,
		Label:       "Deliver",
		Description: "Mark the package delivered at its destination",
	},
	model.ActionGiveToReceiver: {
		ID:          model.ActionGiveToReceiver,
		Label:       "Give to receiver",
		Description: "Hand the package directly to the receiver",
	},
	model.ActionConfirmReceipt: {
		ID:          model.ActionConfirmReceipt,
		Label:       "Confirm receipt",
		Description: "Receiver confirms the package was collected",
	},
	model.ActionReject: {
		ID:          model.ActionReject,
		Label:       "Reject delivery",
		Description: "Record that the receiver refused the package",
	},
	model.ActionProcess: {
		ID:          model.ActionProcess,
		Label:       "Process",
		Description: "Record warehouse sorting without changing state",
	},
	model.ActionPrint: {
		ID:          model.ActionPrint,
		Label:       "Print receipt",
		Description: "Print a package receipt without changing state",
	},
}

// Resolve returns the legal actions for a (state, role, delivery type) triple,
// in declaration order, with each action appearing at most once.
func Resolve(state model.PackageState, role model.Role, deliveryType model.DeliveryType) []ActionDescriptor {
	var out []ActionDescriptor
	seen := make(map[model.ActionType]bool)

	for _, t := range transitions {
		if t.From != state || seen[t.Action] {
			continue
		}
		if !roleAllowed(t.Roles, role) || !typeAllowed(t.DeliveryTypes, deliveryType) {
			continue
		}
		seen[t.Action] = true
		out = append(out, descriptors[t.Action])
	}
	return out
}

// Allowed reports whether action is legal for the given triple.
func Allowed(state model.PackageState, role model.Role, deliveryType model.DeliveryType, action model.ActionType) bool {
	for _, d := range Resolve(state, role, deliveryType) {
		if d.ID == action {
			return true
		}
	}
	return false
}

// Target returns the resulting state of applying action in state, and whether
// such an edge exists at all (ignoring role and delivery-type restrictions).
// Side-effect-only edges return the input state.
func Target(state model.PackageState, action model.ActionType) (model.PackageState, bool) {
	for _, t := range transitions {
		if t.From == state && t.Action == action {
			return t.To, true
		}
	}
	return "", false
}

// Describe returns the descriptor for an action id.
// Unknown ids return a descriptor carrying only the id.
func Describe(action model.ActionType) ActionDescriptor {
	if d, ok := descriptors[action]; ok {
		return d
	}
	return ActionDescriptor{ID: action, Label: string(action)}
}

func roleAllowed(roles []model.Role, role model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func typeAllowed(types []model.DeliveryType, dt model.DeliveryType) bool {
	if types == nil {
		return dt.IsValid()
	}
	for _, t := range types {
		if t == dt {
			return true
		}
	}
	return false
}
