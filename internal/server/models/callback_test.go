package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallback_Outcome(t *testing.T) {
	tests := []struct {
		name string
		cb   *Callback
		want CallbackOutcome
	}{
		{name: "nil", cb: nil, want: OutcomeMalformed},
		{name: "missing key", cb: &Callback{Status: StatusReadyForSave, URL: "http://x"}, want: OutcomeMalformed},
		{name: "ready with url", cb: &Callback{Key: "k", Status: StatusReadyForSave, URL: "http://x"}, want: OutcomeSaved},
		{name: "ready without url", cb: &Callback{Key: "k", Status: StatusReadyForSave}, want: OutcomeMalformed},
		{name: "editing", cb: &Callback{Key: "k", Status: StatusEditing}, want: OutcomeNotReady},
		{name: "closed", cb: &Callback{Key: "k", Status: StatusClosedNoChanges}, want: OutcomeNotReady},
		{name: "force save is a no-op", cb: &Callback{Key: "k", Status: StatusForceSave, URL: "http://x"}, want: OutcomeNotReady},
		{name: "unknown status", cb: &Callback{Key: "k", Status: 42}, want: OutcomeNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cb.Outcome())
		})
	}
}

func TestCallbackStatus_String(t *testing.T) {
	assert.Equal(t, "ready_for_save", StatusReadyForSave.String())
	assert.Equal(t, "unknown", CallbackStatus(99).String())
	assert.Equal(t, "saved", OutcomeSaved.String())
}

func TestAllPermissions(t *testing.T) {
	p := AllPermissions()
	assert.True(t, p.Comment && p.Copy && p.Download && p.Edit && p.FillForms &&
		p.ModifyContentControl && p.ModifyFilter && p.Print && p.Review)
}
