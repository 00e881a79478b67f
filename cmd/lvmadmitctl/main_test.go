package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prajnoha/lvm2/pkg/events"
)

func TestSplitAliases(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want []string
	}{
		{
			name: "single name",
			arg:  "/dev/sdb",
			want: []string{"/dev/sdb"},
		},
		{
			name: "alias list keeps order",
			arg:  "/dev/sdb,/dev/disk/by-id/wwn-0x5000",
			want: []string{"/dev/sdb", "/dev/disk/by-id/wwn-0x5000"},
		},
		{
			name: "empty entries dropped",
			arg:  ",/dev/sdb,,",
			want: []string{"/dev/sdb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAliases(tt.arg)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitAliases(%q) = %v, want %v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		in      string
		want    events.Class
		wantErr bool
	}{
		{in: "composite", want: events.ClassComposite},
		{in: "array", want: events.ClassArray},
		{in: "loop", want: events.ClassLoop},
		{in: "other", want: events.ClassOther},
		{in: "floppy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseClass(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseClass(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseClass(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunCheck(t *testing.T) {
	cfgPath := writeConfig(t, `
devices:
  filter: ["a|^/dev/sdb$|", "r|^/dev/sd|"]
`)

	if err := runCheck(cfgPath, []string{"/dev/sdb", "/dev/sdc"}); err != nil {
		t.Fatalf("runCheck failed: %v", err)
	}
}

func TestRunCheckBadPattern(t *testing.T) {
	cfgPath := writeConfig(t, `
devices:
  filter: ["x|^/dev/sd|"]
`)

	if err := runCheck(cfgPath, []string{"/dev/sdb"}); err == nil {
		t.Fatal("Expected error for bad polarity pattern, got nil")
	}
}

func TestRunPatterns(t *testing.T) {
	cfgPath := writeConfig(t, `
devices:
  filter: ["a|^/dev/sdb$|", "r|.*|"]
  global_filter: ["r|^/dev/ram|"]
`)

	if err := runPatterns(cfgPath); err != nil {
		t.Fatalf("runPatterns failed: %v", err)
	}
}

func TestRunPatternsNoPatterns(t *testing.T) {
	if err := runPatterns(""); err != nil {
		t.Fatalf("runPatterns with defaults failed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
