// Package policy is the single source of truth for who may do what with a clinical document.
//
// Decisions are computed fresh on every call from the tables below; nothing is cached or stored.
// Anything that is not explicitly allowed by a row is denied.
package policy

import "docvault/internal/model"

// Decision is the outcome of a policy evaluation.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Action is an operation on a single document.
type Action string

const (
	ActionRead   Action = "read"
	ActionModify Action = "modify"
	ActionShare  Action = "share"
)

// PatientAction is an operation scoped to a patient rather than a document.
type PatientAction string

const (
	ActionUpload      PatientAction = "upload"
	ActionListPatient PatientAction = "list"
	ActionViewStats   PatientAction = "view_stats"
	ActionListAll     PatientAction = "list_all"
)

type documentCondition func(actorID string, d *model.Document) bool

type documentRule struct {
	role   model.Role
	action Action
	when   documentCondition
	// scope narrows a list query to exactly the documents `when` admits.
	scope func(actorID string, f model.DocumentFilter) (model.DocumentFilter, bool)
}

type patientCondition func(actorID, patientID string) bool

type patientRule struct {
	role   model.Role
	action PatientAction
	when   patientCondition
}

func always(string, *model.Document) bool { return true }

func unrestricted(_ string, f model.DocumentFilter) (model.DocumentFilter, bool) { return f, true }

// ownedAndVisible: the patient owns the record and it was shared with them or uploaded by them.
func ownedAndVisible(actorID string, d *model.Document) bool {
	return d.PatientID == actorID && (d.IsSharedWithPatient || d.UploaderID == actorID)
}

func scopeOwnedAndVisible(actorID string, f model.DocumentFilter) (model.DocumentFilter, bool) {
	if f.PatientID != "" && f.PatientID != actorID {
		return f, false
	}
	f.PatientID = actorID
	f.VisibleToPatient = true
	return f, true
}

func uploadedBySelf(actorID string, d *model.Document) bool {
	return d.PatientID == actorID && d.UploaderID == actorID
}

func anyPatient(string, string) bool { return true }

func self(actorID, patientID string) bool { return patientID == actorID }

var documentRules = []documentRule{
	{role: model.RoleStaff, action: ActionRead, when: always, scope: unrestricted},
	{role: model.RoleStaff, action: ActionModify, when: always},
	{role: model.RoleStaff, action: ActionShare, when: always},

	{role: model.RoleDoctor, action: ActionRead, when: always, scope: unrestricted},
	{role: model.RoleDoctor, action: ActionModify, when: always},
	{role: model.RoleDoctor, action: ActionShare, when: always},

	{role: model.RolePatient, action: ActionRead, when: ownedAndVisible, scope: scopeOwnedAndVisible},
	{role: model.RolePatient, action: ActionModify, when: uploadedBySelf},
}

var patientRules = []patientRule{
	{role: model.RoleStaff, action: ActionUpload, when: anyPatient},
	{role: model.RoleStaff, action: ActionListPatient, when: anyPatient},
	{role: model.RoleStaff, action: ActionViewStats, when: anyPatient},
	{role: model.RoleStaff, action: ActionListAll, when: anyPatient},

	{role: model.RoleDoctor, action: ActionUpload, when: anyPatient},
	{role: model.RoleDoctor, action: ActionListPatient, when: anyPatient},
	{role: model.RoleDoctor, action: ActionViewStats, when: anyPatient},
	{role: model.RoleDoctor, action: ActionListAll, when: anyPatient},

	{role: model.RolePatient, action: ActionUpload, when: self},
	{role: model.RolePatient, action: ActionListPatient, when: self},
}

// Evaluate answers whether actorID with actorRole may read d.
func Evaluate(actorID string, actorRole model.Role, d *model.Document) Decision {
	return Authorize(model.Actor{ID: actorID, Role: actorRole}, ActionRead, d)
}

// Authorize answers whether actor may perform action on d.
func Authorize(actor model.Actor, action Action, d *model.Document) Decision {
	if d == nil || actor.ID == "" {
		return Deny
	}
	for _, r := range documentRules {
		if r.role == actor.Role && r.action == action && r.when(actor.ID, d) {
			return Allow
		}
	}
	return Deny
}

// AuthorizePatient answers whether actor may perform a patient-scoped action for patientID.
func AuthorizePatient(actor model.Actor, action PatientAction, patientID string) Decision {
	if actor.ID == "" {
		return Deny
	}
	for _, r := range patientRules {
		if r.role == actor.Role && r.action == action && r.when(actor.ID, patientID) {
			return Allow
		}
	}
	return Deny
}

// ScopeFilter narrows f to the documents actor may read. The second result is false when
// the actor can read nothing matching f, in which case the query should not be run at all.
func ScopeFilter(actor model.Actor, f model.DocumentFilter) (model.DocumentFilter, bool) {
	if actor.ID == "" {
		return f, false
	}
	for _, r := range documentRules {
		if r.role == actor.Role && r.action == ActionRead && r.scope != nil {
			return r.scope(actor.ID, f)
		}
	}
	return f, false
}
