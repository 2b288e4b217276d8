package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_Guard(t *testing.T) {
	tests := []struct {
		name       string
		authorized bool
		op         Operation
		statement  string
		wantErr    any
	}{
		{name: "read select", authorized: false, op: OpRead, statement: "SELECT * FROM t"},
		{name: "read is case-insensitive", authorized: false, op: OpRead, statement: "select 1"},
		{name: "create insert authorized", authorized: true, op: OpCreate, statement: "INSERT INTO t VALUES (1)"},
		{name: "update authorized", authorized: true, op: OpUpdate, statement: "update t set a = 1"},
		{name: "delete authorized", authorized: true, op: OpDelete, statement: "DELETE FROM t"},
		{name: "read with insert", authorized: true, op: OpRead, statement: "INSERT INTO t VALUES (1)", wantErr: &DMLKindError{}},
		{name: "create with select", authorized: true, op: OpCreate, statement: "SELECT 1", wantErr: &DMLKindError{}},
		{name: "create read-only", authorized: false, op: OpCreate, statement: "INSERT INTO t VALUES (1)", wantErr: &ReadOnlyError{}},
		{name: "update read-only", authorized: false, op: OpUpdate, statement: "UPDATE t SET a = 1", wantErr: &ReadOnlyError{}},
		{name: "delete read-only", authorized: false, op: OpDelete, statement: "DELETE FROM t", wantErr: &ReadOnlyError{}},
		{name: "kind checked before read-only", authorized: false, op: OpDelete, statement: "SELECT 1", wantErr: &DMLKindError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase("test", tt.authorized, nil)
			err := b.Guard(tt.op, tt.statement)

			switch tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *DMLKindError:
				var target *DMLKindError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "test", target.Backend)
				assert.Equal(t, tt.op, target.Operation)
			case *ReadOnlyError:
				var target *ReadOnlyError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, tt.op, target.Operation)
				assert.Contains(t, err.Error(), string(tt.op))
			}
		})
	}
}

func TestBase_Unconstructed(t *testing.T) {
	var b Base

	err := b.Guard(OpRead, "SELECT 1")
	var nie *NotImplementedError
	require.ErrorAs(t, err, &nie)
	assert.True(t, b.ReadOnly())

	var nilBase *Base
	require.ErrorAs(t, nilBase.Guard(OpRead, "SELECT 1"), &nie)
	assert.True(t, nilBase.ReadOnly())
}

func TestBase_Exec(t *testing.T) {
	b := NewBase("test", true, nil)

	_, err := b.Exec(context.Background(), "SELECT 1")
	var nie *NotImplementedError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, OpExec, nie.Operation)
	assert.Equal(t, "test", nie.Backend)
}

func TestNewBase(t *testing.T) {
	a := NewBase("sqlite", true, nil)
	b := NewBase("sqlite", false, nil)

	assert.Equal(t, "sqlite", a.Name())
	assert.False(t, a.ReadOnly())
	assert.True(t, b.ReadOnly())
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotNil(t, a.Logger)
}
