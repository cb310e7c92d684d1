package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/saba-chan/saba-core/internal/domain"
)

func TestAddListGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	inst, err := s.Add(domain.Instance{Name: "srv1", ModuleName: "minecraft"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if inst.ID == "" {
		t.Fatal("expected assigned ID")
	}

	list := s.List()
	if len(list) != 1 || list[0].Name != "srv1" {
		t.Fatalf("List = %+v", list)
	}

	got, err := s.Get(inst.ID)
	if err != nil || got.Name != "srv1" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
}

func TestAddDuplicateNameRejected(t *testing.T) {
	s, _ := New(t.TempDir())
	s.Add(domain.Instance{Name: "srv1", ModuleName: "minecraft"})

	_, err := s.Add(domain.Instance{Name: "srv1", ModuleName: "other"})
	if err != domain.ErrInstanceExists {
		t.Fatalf("Add duplicate = %v, want ErrInstanceExists", err)
	}
}

func TestRemoveThenGetNotFound(t *testing.T) {
	s, _ := New(t.TempDir())
	inst, _ := s.Add(domain.Instance{Name: "srv1", ModuleName: "minecraft"})

	if err := s.Remove(inst.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(inst.ID); err != domain.ErrInstanceNotFound {
		t.Fatalf("Get after remove = %v, want ErrInstanceNotFound", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s1, _ := New(dir)
	s1.Add(domain.Instance{Name: "srv1", ModuleName: "minecraft"})

	s2, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(s2.List()) != 1 {
		t.Fatalf("expected reopened store to see persisted instance")
	}
	if _, err := os.Stat(filepath.Join(dir, "instances.json")); err != nil {
		t.Fatalf("expected instances.json to exist: %v", err)
	}
}

func TestReorderRejectsMismatchedLength(t *testing.T) {
	s, _ := New(t.TempDir())
	inst, _ := s.Add(domain.Instance{Name: "srv1", ModuleName: "minecraft"})

	err := s.Reorder([]string{inst.ID, "bogus"})
	if err == nil {
		t.Fatal("expected reorder with wrong length to fail")
	}
}

func TestUpdateRenameCollision(t *testing.T) {
	s, _ := New(t.TempDir())
	a, _ := s.Add(domain.Instance{Name: "a", ModuleName: "minecraft"})
	s.Add(domain.Instance{Name: "b", ModuleName: "minecraft"})

	a.Name = "b"
	_, err := s.Update(a)
	if err != domain.ErrInstanceExists {
		t.Fatalf("Update rename collision = %v, want ErrInstanceExists", err)
	}
}
