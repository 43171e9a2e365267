package store_test

import (
	"path/filepath"
	"testing"

	"github.com/ps2dev/ps2dev/store"
)

func TestMemStore_SetGetRoundTrip(t *testing.T) {
	kv := store.NewMemStore()
	ns := kv.Namespace("clk|data")
	if err := ns.SetByte("mode", 2); err != nil {
		t.Fatalf("SetByte: %v", err)
	}
	v, ok, err := ns.GetByte("mode")
	if err != nil {
		t.Fatalf("GetByte: %v", err)
	}
	if !ok || v != 2 {
		t.Fatalf("GetByte = (%d, %v), want (2, true)", v, ok)
	}
}

func TestMemStore_GetMissingKey(t *testing.T) {
	kv := store.NewMemStore()
	ns := kv.Namespace("clk|data")
	_, ok, err := ns.GetByte("mode")
	if err != nil {
		t.Fatalf("GetByte: %v", err)
	}
	if ok {
		t.Fatal("GetByte on missing key: ok = true, want false")
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ps2dev.json")

	fs1, err := store.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ns1 := fs1.Namespace("clk|data")
	if err := ns1.SetByte("resolution", 3); err != nil {
		t.Fatalf("SetByte: %v", err)
	}

	fs2, err := store.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	v, ok, err := fs2.Namespace("clk|data").GetByte("resolution")
	if err != nil {
		t.Fatalf("GetByte: %v", err)
	}
	if !ok || v != 3 {
		t.Fatalf("GetByte after reopen = (%d, %v), want (3, true)", v, ok)
	}
}

func TestFileStore_NamespacesAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ps2dev.json")
	fs, err := store.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := fs.Namespace("mouse").SetByte("mode", 1); err != nil {
		t.Fatalf("SetByte: %v", err)
	}
	if _, ok, _ := fs.Namespace("keyboard").GetByte("mode"); ok {
		t.Fatal("unrelated namespace saw another namespace's key")
	}
}
