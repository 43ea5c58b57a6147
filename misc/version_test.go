package misc

import "testing"

func TestGetters(t *testing.T) {
	if GetAppName() != "vstyle" {
		t.Errorf("GetAppName() = %q", GetAppName())
	}
	if GetVersion() == "" {
		t.Error("GetVersion() is empty")
	}
	if GetGitHash() == "" {
		t.Error("GetGitHash() is empty")
	}
}
