package staging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStageCommit(t *testing.T) {
	root := t.TempDir()
	area := New(root, filepath.Join(t.TempDir(), "staging"))

	h, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(h.Dir, "game", "bin"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(h.Dir, "game", "data.txt"), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(h.Dir, "game", "bin", "exe"), []byte("bin"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := area.Commit(h); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, "game", "data.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("committed data.txt = %q", data)
	}
	if _, err := os.Stat(filepath.Join(root, "game", "bin", "exe")); err != nil {
		t.Errorf("nested file not committed: %v", err)
	}
	if _, err := os.Stat(h.Dir); !os.IsNotExist(err) {
		t.Error("overlay dir survived commit")
	}
}

func TestCommitReplacesExistingFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "data.txt"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	area := New(root, filepath.Join(t.TempDir(), "staging"))
	h, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(h.Dir, "data.txt"), []byte("new"), 0644)

	if err := area.Commit(h); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(root, "data.txt"))
	if string(data) != "new" {
		t.Errorf("data.txt = %q after commit, want new", data)
	}
}

func TestDiscardLeavesRootUntouched(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "data.txt"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	area := New(root, filepath.Join(t.TempDir(), "staging"))
	h, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(h.Dir, "data.txt"), []byte("new"), 0644)

	area.Discard(h)

	data, _ := os.ReadFile(filepath.Join(root, "data.txt"))
	if string(data) != "old" {
		t.Errorf("discard mutated the install root: data.txt = %q", data)
	}
	if _, err := os.Stat(h.Dir); !os.IsNotExist(err) {
		t.Error("overlay dir survived discard")
	}
}

func TestSeedCopiesFromInstallRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "game"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "game", "player.dll"), []byte("live binary"), 0755); err != nil {
		t.Fatal(err)
	}

	area := New(root, filepath.Join(t.TempDir(), "staging"))
	h, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}

	if err := area.Seed(h, filepath.Join("game", "player.dll")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(h.Dir, "game", "player.dll"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "live binary" {
		t.Errorf("seeded copy = %q", data)
	}

	info, _ := os.Stat(filepath.Join(h.Dir, "game", "player.dll"))
	if info.Mode().Perm() != 0755 {
		t.Errorf("seeded mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestSeedPrefersOverlayContent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "data.txt"), []byte("base"), 0644); err != nil {
		t.Fatal(err)
	}

	area := New(root, filepath.Join(t.TempDir(), "staging"))
	h, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(h.Dir, "data.txt"), []byte("staged"), 0644)

	if err := area.Seed(h, "data.txt"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(h.Dir, "data.txt"))
	if string(data) != "staged" {
		t.Errorf("seed replaced staged content: %q", data)
	}
}

func TestSeedMissingBaseIsNoop(t *testing.T) {
	area := New(t.TempDir(), filepath.Join(t.TempDir(), "staging"))
	h, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}

	if err := area.Seed(h, "never-existed.bin"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(h.Dir, "never-existed.bin")); !os.IsNotExist(err) {
		t.Error("seed invented a file the install root never had")
	}
}

func TestStageHandlesAreIndependent(t *testing.T) {
	area := New(t.TempDir(), filepath.Join(t.TempDir(), "staging"))

	a, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}
	b, err := area.Stage()
	if err != nil {
		t.Fatal(err)
	}

	if a.Dir == b.Dir {
		t.Error("two staged overlays share a directory")
	}
}
