package monitor

import "testing"

func TestEnumerateIncludesSelf(t *testing.T) {
	procs, err := Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(procs) == 0 {
		t.Fatal("expected at least one process (the test binary itself)")
	}
}

func TestFindByNameIsCaseInsensitive(t *testing.T) {
	all, err := Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(all) == 0 {
		t.Skip("no processes visible in this sandbox")
	}
	upper := all[0].Name
	if upper == "" {
		t.Skip("first process has no readable name")
	}
	matches, err := FindByName(upper)
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("expected FindByName(%q) to match itself", upper)
	}
}

func TestIsRunningFalseForImprobablePID(t *testing.T) {
	running, err := IsRunning(999999)
	if err != nil {
		t.Fatalf("IsRunning: %v", err)
	}
	if running {
		t.Skip("pid 999999 unexpectedly in use on this host")
	}
}
