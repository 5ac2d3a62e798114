package protocol

// Action names.
const (
	ActionNoAction      = "no_action"
	ActionUnknownAction = "unknown_action"
	ActionSkip          = "skip"
	ActionMove          = "move"
	ActionAttach        = "attach"
	ActionDetach        = "detach"
	ActionRotate        = "rotate"
	ActionConnect       = "connect"
	ActionDisconnect    = "disconnect"
	ActionRequest       = "request"
	ActionSubmit        = "submit"
	ActionClear         = "clear"
	ActionSurvey        = "survey"
	ActionAdopt         = "adopt"
)

// AllActions are the actions an agent may choose. no_action is what the
// server records for agents that did not answer in time.
var AllActions = []string{
	ActionMove, ActionAttach, ActionDetach, ActionRotate, ActionConnect, ActionRequest,
	ActionSubmit, ActionClear, ActionDisconnect, ActionSkip, ActionSurvey, ActionAdopt,
}

// Action results.
const (
	ResultUnprocessed     = "unprocessed"
	ResultSuccess         = "success"
	ResultPartialSuccess  = "partial_success"
	ResultFailed          = "failed"
	ResultFailedRandom    = "failed_random"
	ResultFailedParameter = "failed_parameter"
	ResultFailedPath      = "failed_path"
	ResultFailedPartner   = "failed_partner"
	ResultFailedTarget    = "failed_target"
	ResultFailedBlocked   = "failed_blocked"
	ResultFailedStatus    = "failed_status"
	ResultFailedResources = "failed_resources"
	ResultFailedLocation  = "failed_location"
	ResultFailedRole      = "failed_role"
	ResultUnknownAction   = "unknown_action"
)

var knownResults = map[string]struct{}{
	ResultSuccess:         {},
	ResultPartialSuccess:  {},
	ResultFailed:          {},
	ResultFailedRandom:    {},
	ResultFailedParameter: {},
	ResultFailedPath:      {},
	ResultFailedPartner:   {},
	ResultFailedTarget:    {},
	ResultFailedBlocked:   {},
	ResultFailedStatus:    {},
	ResultFailedResources: {},
	ResultFailedLocation:  {},
	ResultFailedRole:      {},
	ResultUnknownAction:   {},
}

// IsFinalResult reports whether r is a result an action can end a step with.
func IsFinalResult(r string) bool {
	_, ok := knownResults[r]
	return ok
}

// IsKnownAction reports whether name is an action an agent may send.
func IsKnownAction(name string) bool {
	if name == ActionNoAction {
		return true
	}
	for _, a := range AllActions {
		if a == name {
			return true
		}
	}
	return false
}
