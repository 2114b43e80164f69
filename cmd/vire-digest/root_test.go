package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "vire-digest" {
			t.Errorf("expected use 'vire-digest', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
	})

	t.Run("has config flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"config-dir", "profile"} {
			flag := cmd.PersistentFlags().Lookup(name)
			if flag == nil {
				t.Fatalf("expected %s flag", name)
			}
			if flag.DefValue != "" {
				t.Errorf("expected empty default for %s, got %q", name, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"run": false, "parse": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected subcommand %q", name)
			}
		}
	})
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "vire-digest version ") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestRunCmd_Flags(t *testing.T) {
	t.Parallel()

	cmd := NewRunCmd()
	for _, name := range []string{"quiet", "no-banner"} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Fatalf("expected %s flag", name)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false' for %s, got %q", name, flag.DefValue)
		}
	}
}

func TestRunCmd_RejectsArgs(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "extra"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unexpected argument")
	}
}
