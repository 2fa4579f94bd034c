package state

import (
	"errors"
	"testing"

	"bricsengine/storage"
)

func TestKeyFormats(t *testing.T) {
	if got := string(PauseKey(" Vault ")); got != "admin/pause/vault" {
		t.Fatalf("unexpected pause key: %s", got)
	}
	if len(BankBalanceKey(owner, 1)) != len(bankBalancePrefix)+21 {
		t.Fatalf("unexpected balance key length")
	}
	if string(BankAllowanceKey(owner, owner, 1)) == string(BankAllowanceKey(owner, owner, 2)) {
		t.Fatalf("allowance keys must differ per currency")
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := []byte("test/list")
	err := m.Update(func(tx *Tx) error {
		for _, v := range []string{"a", "b", "a"} {
			if err := tx.KVAppend(key, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	var list [][]byte
	_ = m.View(func(tx *Tx) error { return tx.KVGetList(key, &list) })
	if len(list) != 2 || string(list[0]) != "a" || string(list[1]) != "b" {
		t.Fatalf("unexpected list: %q", list)
	}
}

func TestKVGetListRequiresSlicePointer(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	_ = m.View(func(tx *Tx) error {
		var notSlice int
		if err := tx.KVGetList([]byte("x"), &notSlice); err == nil {
			t.Fatalf("expected error for non-slice destination")
		}
		return nil
	})
}

func TestEnsureStateVersion(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if err := m.EnsureStateVersion(false); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if err := m.Update(func(tx *Tx) error { return tx.SetStateVersion(StateVersion + 1) }); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if err := m.EnsureStateVersion(false); !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := m.EnsureStateVersion(true); err != nil {
		t.Fatalf("allow migrate: %v", err)
	}
}
