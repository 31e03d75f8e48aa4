// Package workflow holds the closed status sets and transition tables of every
// approvable resource. Services consult these tables instead of comparing
// status strings.
package workflow

import (
	"sort"
	"strings"

	"crms/pkg/apperror"
)

// Status is the lifecycle state of an approvable resource
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusFulfilled Status = "FULFILLED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusPaid      Status = "PAID"
)

// Action is a transition trigger
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionDraft   Action = "DRAFT"
	ActionFulfill Action = "FULFILL"
	ActionDeliver Action = "DELIVER"
	ActionCancel  Action = "CANCEL"
	ActionPay     Action = "PAY"
)

// ParseAction normalizes a client supplied action name
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionApprove, ActionReject, ActionDraft, ActionFulfill, ActionDeliver, ActionCancel, ActionPay:
		return a, nil
	}
	return "", apperror.Validation("unknown action %q", s)
}

// Machine is a transition table for one resource kind
type Machine struct {
	name        string
	transitions map[Status]map[Action]Status
}

func newMachine(name string, edges map[Status]map[Action]Status) *Machine {
	return &Machine{name: name, transitions: edges}
}

// Name is the resource label used in error messages
func (m *Machine) Name() string { return m.name }

// Next returns the state reached by applying action to from
func (m *Machine) Next(from Status, action Action) (Status, error) {
	if _, known := m.transitions[from]; !known {
		return "", apperror.Validation("%s has unknown status %q", m.name, from)
	}
	to, ok := m.transitions[from][action]
	if !ok {
		if m.IsTerminal(from) {
			return "", apperror.Conflict("%s is already %s", m.name, from)
		}
		return "", apperror.Conflict("cannot %s %s in status %s", strings.ToLower(string(action)), m.name, from)
	}
	return to, nil
}

// IsTerminal reports whether no transition leaves s
func (m *Machine) IsTerminal(s Status) bool {
	return len(m.transitions[s]) == 0
}

// Sources lists the states from which action is legal, sorted
func (m *Machine) Sources(action Action) []Status {
	var out []Status
	for from, edges := range m.transitions {
		if _, ok := edges[action]; ok {
			out = append(out, from)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Statuses lists every state of the machine, sorted
func (m *Machine) Statuses() []Status {
	out := make([]Status, 0, len(m.transitions))
	for s := range m.transitions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether s belongs to the machine
func (m *Machine) Valid(s Status) bool {
	_, ok := m.transitions[s]
	return ok
}

// ResourceRequest covers equipment and material requests.
var ResourceRequest = newMachine("request", map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {
		ActionFulfill: StatusFulfilled,
	},
	StatusRejected:  {},
	StatusFulfilled: {},
})

// PurchaseOrder adds the half-reserving DRAFT state and the delivery tail.
var PurchaseOrder = newMachine("purchase order", map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionDraft:   StatusDraft,
		ActionReject:  StatusRejected,
	},
	StatusDraft: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {
		ActionDeliver: StatusDelivered,
		ActionCancel:  StatusCancelled,
	},
	StatusRejected:  {},
	StatusDelivered: {},
	StatusCancelled: {},
})

// Expense is approved against the budget, then paid.
var Expense = newMachine("expense", map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {
		ActionPay: StatusPaid,
	},
	StatusRejected: {},
	StatusPaid:     {},
})

// Quotation statuses are not driven by a machine; acceptance is all or nothing.
const (
	QuotationSubmitted Status = "SUBMITTED"
	QuotationAccepted  Status = "ACCEPTED"
	QuotationRejected  Status = "REJECTED"
)
