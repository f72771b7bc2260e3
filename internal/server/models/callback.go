package models

// CallbackStatus is the status integer the document server reports.
type CallbackStatus int

const (
	StatusEditing         CallbackStatus = 1
	StatusReadyForSave    CallbackStatus = 2
	StatusSaveError       CallbackStatus = 3
	StatusClosedNoChanges CallbackStatus = 4
	StatusForceSave       CallbackStatus = 6
	StatusForceSaveError  CallbackStatus = 7
)

func (s CallbackStatus) String() string {
	switch s {
	case StatusEditing:
		return "editing"
	case StatusReadyForSave:
		return "ready_for_save"
	case StatusSaveError:
		return "save_error"
	case StatusClosedNoChanges:
		return "closed_no_changes"
	case StatusForceSave:
		return "force_save"
	case StatusForceSaveError:
		return "force_save_error"
	default:
		return "unknown"
	}
}

// CallbackOutcome is the closed set the callback handler acts on.
type CallbackOutcome int

const (
	// OutcomeNotReady is acknowledged without side effects.
	OutcomeNotReady CallbackOutcome = iota
	// OutcomeSaved carries a location with the final document bytes.
	OutcomeSaved
	// OutcomeMalformed is rejected without touching persisted state.
	OutcomeMalformed
)

func (o CallbackOutcome) String() string {
	switch o {
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeSaved:
		return "saved"
	default:
		return "malformed"
	}
}

// Callback is a decoded save-back notification.
type Callback struct {
	Key      string
	Status   CallbackStatus
	URL      string
	FileType string
	Users    []string
}

// Outcome classifies the callback. Only ready-for-save with a location is
// processed; ready-for-save without one, or a missing key, is malformed.
func (c *Callback) Outcome() CallbackOutcome {
	if c == nil || c.Key == "" {
		return OutcomeMalformed
	}
	if c.Status != StatusReadyForSave {
		return OutcomeNotReady
	}
	if c.URL == "" {
		return OutcomeMalformed
	}
	return OutcomeSaved
}
