package model

import (
	"reflect"
	"testing"
)

// 大文字小文字を区別せずに解析し、それ以外を拒否することを検証
func TestParseOperation(t *testing.T) {
	tests := []struct {
		in   string
		want Operation
		ok   bool
	}{
		{"add", OperationAdd, true},
		{"ADD", OperationAdd, true},
		{" Remove ", OperationRemove, true},
		{"delete", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOperation(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseOperation(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// addは存在しない場合のみ追加することを検証
func TestOperation_Apply_Add(t *testing.T) {
	ids := []string{"a", "b"}

	got, changed := OperationAdd.Apply(ids, "c")
	if !changed || !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Apply(add c) = %v, %v", got, changed)
	}

	got, changed = OperationAdd.Apply(ids, "a")
	if changed || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Apply(add a) = %v, %v", got, changed)
	}

	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("input slice was modified: %v", ids)
	}
}

// removeは最初の一致のみ削除し、存在しない場合は変更しないことを検証
func TestOperation_Apply_Remove(t *testing.T) {
	ids := []string{"a", "b", "a"}

	got, changed := OperationRemove.Apply(ids, "a")
	if !changed || !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Apply(remove a) = %v, %v", got, changed)
	}

	got, changed = OperationRemove.Apply(ids, "z")
	if changed || !reflect.DeepEqual(got, ids) {
		t.Errorf("Apply(remove z) = %v, %v", got, changed)
	}

	if !reflect.DeepEqual(ids, []string{"a", "b", "a"}) {
		t.Errorf("input slice was modified: %v", ids)
	}
}

// 空のリストから削除しても空のリストが返ることを検証
func TestOperation_Apply_RemoveFromEmpty(t *testing.T) {
	got, changed := OperationRemove.Apply(nil, "a")
	if changed {
		t.Error("expected no change")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Apply = %#v, want empty non-nil slice", got)
	}
}
