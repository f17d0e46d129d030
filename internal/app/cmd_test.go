package app

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"empty defaults to serve", []string{}, CommandServe},
		{"nil defaults to serve", nil, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"upper case", []string{"WORKER"}, CommandWorker},
		{"flag style", []string{"--migrate"}, CommandMigrate},
		{"extra args ignored", []string{"worker", "--flag", "value"}, CommandWorker},
		{"unknown defaults to serve", []string{"unknown"}, CommandServe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestLookupCommand_ReportsUnknown(t *testing.T) {
	if _, ok := lookupCommand([]string{"serve"}); !ok {
		t.Error("serve should be known")
	}
	if _, ok := lookupCommand(nil); !ok {
		t.Error("no args should be treated as known (default serve)")
	}
	cmd, ok := lookupCommand([]string{"fetch"})
	if ok {
		t.Error("fetch should be unknown")
	}
	if cmd != CommandServe {
		t.Errorf("unknown command = %q, want serve", cmd)
	}
}
